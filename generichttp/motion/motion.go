// Package motion provides an HTTP interface to motion controllers
package motion

/*
A controller may implement any number of the capability interfaces in this
package.  NewHTTPMotionController tests for each one and binds the routes of
those that are present.
*/
import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/asistage/generichttp"
)

// Controller is used for the HTTP interface, which will check if the concrete
// type satisfies the other interfaces in this package and inject their routes
// automatically
type Controller interface {
	// Mover - all Controllers must be Movers
	Mover
}

// HTTPMotionController wraps a motion controller with HTTP
type HTTPMotionController struct {
	Controller

	RouteTable generichttp.RouteTable
}

// NewHTTPMotionController returns a new HTTP wrapper with the route table pre-configured
func NewHTTPMotionController(c Controller) HTTPMotionController {
	w := HTTPMotionController{Controller: c}
	rt := generichttp.RouteTable{}
	HTTPMove(c, rt)
	if speeder, ok := c.(Speeder); ok {
		HTTPSpeed(speeder, rt)
	}
	if stopper, ok := c.(Stopper); ok {
		HTTPStop(stopper, rt)
	}
	if inpos, ok := c.(InPositionQueryer); ok {
		HTTPInPosition(inpos, rt)
	}
	if lim, ok := c.(LimitQueryer); ok {
		HTTPLimits(lim, rt)
	}
	if homed, ok := c.(HomedQueryer); ok {
		HTTPHomed(homed, rt)
	}
	if jogger, ok := c.(Jogger); ok {
		HTTPJog(jogger, rt)
	}
	w.RouteTable = rt
	return w
}

// RT satisfies the HTTPer interface
func (h HTTPMotionController) RT() generichttp.RouteTable {
	return h.RouteTable
}

func axisRoute(method, leaf string) generichttp.MethodPath {
	return generichttp.MethodPath{Method: method, Path: "/axis/{axis}/" + leaf}
}

// axisFloat adapts a per-axis getter to generichttp.GetFloat
func axisFloat(fcn func(string) (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		generichttp.GetFloat(func() (float64, error) { return fcn(axis) })(w, r)
	}
}

// axisBool adapts a per-axis getter to generichttp.GetBool
func axisBool(fcn func(string) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		generichttp.GetBool(func() (bool, error) { return fcn(axis) })(w, r)
	}
}

// axisSetFloat adapts a per-axis setter to generichttp.SetFloat
func axisSetFloat(fcn func(string, float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		generichttp.SetFloat(func(f float64) error { return fcn(axis, f) })(w, r)
	}
}
