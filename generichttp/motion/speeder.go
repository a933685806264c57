package motion

import (
	"net/http"

	"github.com/nasa-jpl/asistage/generichttp"
)

// Speeder describes an interface with velocity-related methods for axes
type Speeder interface {
	// SetVelocity sets the velocity setpoint on the axis
	SetVelocity(string, float64) error

	// GetVelocity gets the velocity setpoint on the axis
	GetVelocity(string) (float64, error)
}

// HTTPSpeed adds routes for the speeder to the route table
func HTTPSpeed(iface Speeder, table generichttp.RouteTable) {
	table[axisRoute(http.MethodPost, "velocity")] = axisSetFloat(iface.SetVelocity)
	table[axisRoute(http.MethodGet, "velocity")] = axisFloat(iface.GetVelocity)
}
