package motion

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/asistage/generichttp"
	"github.com/nasa-jpl/asistage/util"
)

// fake implements every capability in the package on one axis, "x"
type fake struct {
	pos      float64
	vel      float64
	jog      float64
	stopped  bool
	homed    bool
	lastCall string
}

var errNoAxis = errors.New("no such axis")

func (f *fake) check(axis string) error {
	if axis != "x" {
		return errNoAxis
	}
	return nil
}

func (f *fake) GetPos(axis string) (float64, error) { return f.pos, f.check(axis) }

func (f *fake) MoveAbs(axis string, pos float64) error {
	f.lastCall = "abs"
	f.pos = pos
	return f.check(axis)
}

func (f *fake) MoveRel(axis string, delta float64) error {
	f.lastCall = "rel"
	f.pos += delta
	return f.check(axis)
}

func (f *fake) Home(axis string) error {
	f.homed = true
	return f.check(axis)
}

func (f *fake) GetVelocity(axis string) (float64, error) { return f.vel, f.check(axis) }

func (f *fake) SetVelocity(axis string, v float64) error {
	f.vel = v
	return f.check(axis)
}

func (f *fake) Stop(axis string) error {
	f.stopped = true
	return f.check(axis)
}

func (f *fake) GetInPosition(axis string) (bool, error) { return true, f.check(axis) }

func (f *fake) GetHomed(axis string) (bool, error) { return f.homed, f.check(axis) }

func (f *fake) Jog(axis string, v float64) error {
	f.jog = v
	return f.check(axis)
}

func (f *fake) GetLimits(axis string) (util.Limiter, error) {
	return util.Limiter{Min: -5, Max: 5}, f.check(axis)
}

func serve(c Controller) http.Handler {
	r := chi.NewRouter()
	NewHTTPMotionController(c).RT().Bind(r)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAllCapabilitiesAreBound(t *testing.T) {
	eps := NewHTTPMotionController(&fake{}).RT().Endpoints()
	exp := []string{
		"POST /axis/{axis}/home",
		"GET /axis/{axis}/homed",
		"GET /axis/{axis}/inposition",
		"POST /axis/{axis}/jog",
		"GET /axis/{axis}/limits",
		"GET /axis/{axis}/pos",
		"POST /axis/{axis}/pos",
		"POST /axis/{axis}/stop",
		"GET /axis/{axis}/velocity",
		"POST /axis/{axis}/velocity",
	}
	if len(eps) != len(exp) {
		t.Fatalf("expected %d routes got %d: %v", len(exp), len(eps), eps)
	}
	for i := range exp {
		if eps[i] != exp[i] {
			t.Errorf("route %d: expected %q got %q", i, exp[i], eps[i])
		}
	}
}

func TestMoverOnlyGetsMoveRoutes(t *testing.T) {
	c := struct{ Mover }{&fake{}}
	eps := NewHTTPMotionController(c).RT().Endpoints()
	if len(eps) != 3 {
		t.Errorf("expected 3 routes got %v", eps)
	}
}

func TestGetPos(t *testing.T) {
	h := serve(&fake{pos: 1.25})
	w := do(h, http.MethodGet, "/axis/x/pos", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	f := generichttp.FloatT{}
	if err := json.NewDecoder(w.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 != 1.25 {
		t.Errorf("expected 1.25 got %v", f.F64)
	}
	if w := do(h, http.MethodGet, "/axis/q/pos", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("bad axis: expected 500 got %d", w.Code)
	}
}

func TestSetPosAbsoluteAndRelative(t *testing.T) {
	f := &fake{}
	h := serve(f)
	if w := do(h, http.MethodPost, "/axis/x/pos", `{"f64": 2}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if f.lastCall != "abs" || f.pos != 2 {
		t.Errorf("expected absolute move to 2 got %s to %v", f.lastCall, f.pos)
	}
	if w := do(h, http.MethodPost, "/axis/x/pos?relative=true", `{"f64": 0.5}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if f.lastCall != "rel" || f.pos != 2.5 {
		t.Errorf("expected relative move to 2.5 got %s to %v", f.lastCall, f.pos)
	}
	if w := do(h, http.MethodPost, "/axis/x/pos?relative=maybe", `{"f64": 1}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad relative: expected 400 got %d", w.Code)
	}
	if w := do(h, http.MethodPost, "/axis/x/pos", `{"f64":`); w.Code != http.StatusBadRequest {
		t.Errorf("bad body: expected 400 got %d", w.Code)
	}
}

func TestJogStopVelocity(t *testing.T) {
	f := &fake{}
	h := serve(f)
	do(h, http.MethodPost, "/axis/x/velocity", `{"f64": 3}`)
	do(h, http.MethodPost, "/axis/x/jog", `{"f64": -1}`)
	do(h, http.MethodPost, "/axis/x/stop", "")
	if f.vel != 3 || f.jog != -1 || !f.stopped {
		t.Errorf("expected vel 3, jog -1 and stopped got %+v", f)
	}
	w := do(h, http.MethodGet, "/axis/x/velocity", "")
	if !strings.Contains(w.Body.String(), `"f64":3`) {
		t.Errorf("expected f64 3 in %s", w.Body.String())
	}
}

func TestBoolRoutes(t *testing.T) {
	f := &fake{}
	h := serve(f)
	do(h, http.MethodPost, "/axis/x/home", "")
	for _, path := range []string{"/axis/x/homed", "/axis/x/inposition"} {
		w := do(h, http.MethodGet, path, "")
		b := generichttp.BoolT{}
		if err := json.NewDecoder(w.Body).Decode(&b); err != nil {
			t.Fatal(err)
		}
		if !b.Bool {
			t.Errorf("%s: expected true", path)
		}
	}
}

func TestLimits(t *testing.T) {
	w := do(serve(&fake{}), http.MethodGet, "/axis/x/limits", "")
	lim := util.Limiter{}
	if err := json.NewDecoder(w.Body).Decode(&lim); err != nil {
		t.Fatal(err)
	}
	if lim.Min != -5 || lim.Max != 5 {
		t.Errorf("expected -5, 5 got %v", lim)
	}
}
