package asi

import (
	"net/http"

	"github.com/nasa-jpl/asistage/generichttp"
	"github.com/nasa-jpl/asistage/generichttp/ascii"
	"github.com/nasa-jpl/asistage/generichttp/motion"
)

// NewHTTPWrapper returns an HTTP interface to the stage: the motion routes
// plus /raw and /zero
func NewHTTPWrapper(s *Stage) motion.HTTPMotionController {
	w := motion.NewHTTPMotionController(s)
	ascii.InjectRawComm(w.RouteTable, s)
	w.RouteTable[generichttp.MethodPath{Method: http.MethodPost, Path: "/zero"}] = generichttp.Do(s.Zero)
	return w
}
