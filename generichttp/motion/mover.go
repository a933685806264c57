package motion

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/asistage/generichttp"
)

// Mover describes an interface with position-related methods for axes
type Mover interface {
	// GetPos gets the current position of an axis
	GetPos(string) (float64, error)

	// MoveAbs moves an axis to an absolute position
	MoveAbs(string, float64) error

	// MoveRel moves an axis a relative amount
	MoveRel(string, float64) error

	// Home homes an axis
	Home(string) error
}

// HTTPMove adds routes for the mover to the route table
func HTTPMove(iface Mover, table generichttp.RouteTable) {
	table[axisRoute(http.MethodPost, "home")] = Home(iface)
	table[axisRoute(http.MethodGet, "pos")] = axisFloat(iface.GetPos)
	table[axisRoute(http.MethodPost, "pos")] = SetPos(iface)
}

func popRelative(r *http.Request) (bool, error) {
	relative := r.URL.Query().Get("relative")
	if relative == "" {
		return false, nil
	}
	return strconv.ParseBool(relative)
}

// SetPos returns an HTTP handler func from a mover that triggers an absolute or
// relative move on an axis based on the relative query parameter
func SetPos(m Mover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		relative, err := popRelative(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		move := m.MoveAbs
		if relative {
			move = m.MoveRel
		}
		axisSetFloat(move)(w, r)
	}
}

// Home returns an HTTP handler func from a mover that homes an axis
func Home(m Mover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		generichttp.Do(func() error { return m.Home(axis) })(w, r)
	}
}
