package generichttp

import (
	"errors"
	"go/types"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
)

func TestSubMuxSanitize(t *testing.T) {
	for _, in := range []string{"omc/nkt", "/omc/nkt", "/omc/nkt/", "/omc/nkt/*"} {
		if out := SubMuxSanitize(in); out != "/omc/nkt" {
			t.Errorf("%q: expected /omc/nkt got %q", in, out)
		}
	}
}

func TestRouteTableBind(t *testing.T) {
	rt := RouteTable{
		{Method: http.MethodGet, Path: "/b"}:  func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("get b")) },
		{Method: http.MethodPost, Path: "/a"}: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("post a")) },
	}
	eps := rt.Endpoints()
	if len(eps) != 2 || eps[0] != "POST /a" || eps[1] != "GET /b" {
		t.Errorf("expected [POST /a GET /b] got %v", eps)
	}
	r := chi.NewRouter()
	rt.Bind(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/a", nil))
	if w.Body.String() != "post a" {
		t.Errorf("expected post a got %q", w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 got %d", w.Code)
	}
}

func TestHumanPayload(t *testing.T) {
	cases := []struct {
		hp  HumanPayload
		exp string
	}{
		{HumanPayload{T: types.Bool, Bool: true}, `{"bool":true}`},
		{HumanPayload{T: types.Float64, Float: 1.5}, `{"f64":1.5}`},
		{HumanPayload{T: types.Int, Int: 3}, `{"int":3}`},
		{HumanPayload{T: types.String, String: ":A"}, `{"str":":A"}`},
	}
	for _, c := range cases {
		w := httptest.NewRecorder()
		c.hp.EncodeAndRespond(w, nil)
		if got := strings.TrimSpace(w.Body.String()); got != c.exp {
			t.Errorf("expected %s got %s", c.exp, got)
		}
	}
}

func TestSetFloatAndDo(t *testing.T) {
	var got float64
	h := SetFloat(func(f float64) error { got = f; return nil })
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"f64": -2.5}`)))
	if w.Code != http.StatusOK || got != -2.5 {
		t.Errorf("expected 200 and -2.5 got %d and %v", w.Code, got)
	}
	w = httptest.NewRecorder()
	Do(func() error { return errors.New("nope") })(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 got %d", w.Code)
	}
}
