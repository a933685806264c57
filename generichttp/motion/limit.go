package motion

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/nasa-jpl/asistage/generichttp"
	"github.com/nasa-jpl/asistage/util"
)

// LimitQueryer is a type which knows the travel limits of its axes
type LimitQueryer interface {
	// GetLimits returns the travel range of the axis
	GetLimits(string) (util.Limiter, error)
}

// HTTPLimits adds routes for the limit queryer to the route table
func HTTPLimits(iface LimitQueryer, table generichttp.RouteTable) {
	table[axisRoute(http.MethodGet, "limits")] = Limits(iface)
}

// Limits returns an HTTP handler func that returns the limits for an axis
// as {"min": ..., "max": ...}
func Limits(l LimitQueryer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		lim, err := l.GetLimits(axis)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(lim)
	}
}
