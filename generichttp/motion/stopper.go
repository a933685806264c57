package motion

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/asistage/generichttp"
)

// Stopper describes an interface with stop-related methods for axes
type Stopper interface {
	// Stop aborts motion of the axis
	Stop(string) error
}

// HTTPStop adds routes for the stopper to the route table
func HTTPStop(iface Stopper, table generichttp.RouteTable) {
	table[axisRoute(http.MethodPost, "stop")] = Stop(iface)
}

// Stop returns an HTTP handler func from a stopper that stops an axis
func Stop(s Stopper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		generichttp.Do(func() error { return s.Stop(axis) })(w, r)
	}
}
