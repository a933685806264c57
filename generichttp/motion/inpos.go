package motion

import (
	"net/http"

	"github.com/nasa-jpl/asistage/generichttp"
)

// InPositionQueryer is a type which can query whether an axis is in position
type InPositionQueryer interface {
	// GetInPosition returns True if the axis is in position
	GetInPosition(string) (bool, error)
}

// HTTPInPosition adds routes for InPosition to the route table
func HTTPInPosition(iface InPositionQueryer, table generichttp.RouteTable) {
	table[axisRoute(http.MethodGet, "inposition")] = axisBool(iface.GetInPosition)
}

// HomedQueryer is a type which can report whether an axis is at its home
type HomedQueryer interface {
	// GetHomed returns True if the axis is homed
	GetHomed(string) (bool, error)
}

// HTTPHomed adds routes for Homed to the route table
func HTTPHomed(iface HomedQueryer, table generichttp.RouteTable) {
	table[axisRoute(http.MethodGet, "homed")] = axisBool(iface.GetHomed)
}
