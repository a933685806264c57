package motion

import (
	"net/http"

	"github.com/nasa-jpl/asistage/generichttp"
)

// Jogger is a type which can move an axis continuously until stopped
type Jogger interface {
	// Jog starts motion of the axis in the direction of the sign of the
	// velocity
	Jog(string, float64) error
}

// HTTPJog adds routes for the jogger to the route table
func HTTPJog(iface Jogger, table generichttp.RouteTable) {
	table[axisRoute(http.MethodPost, "jog")] = axisSetFloat(iface.Jog)
}
