package stagesrv

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/knadh/koanf"

	"github.com/nasa-jpl/asistage/asi"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	c, err := Load(koanf.New("."), filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatal(err)
	}
	d := Defaults()
	if c.Addr != d.Addr || c.Endpoint != d.Endpoint || !c.Serial || c.X.MoveTimeout != "30s" {
		t.Errorf("expected defaults got %+v", c)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asistage.yml")
	yml := `Addr: ":9000"
Device: /dev/ttyUSB3
Y:
  Limits:
    Min: -5
    Max: 5
  MoveTimeout: 2s
`
	if err := ioutil.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	os.Setenv("ASISTAGE_MOCK", "true")
	os.Setenv("ASISTAGE_UNRELATED", "ignored")
	defer os.Unsetenv("ASISTAGE_MOCK")
	defer os.Unsetenv("ASISTAGE_UNRELATED")

	c, err := Load(koanf.New("."), path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Addr != ":9000" || c.Device != "/dev/ttyUSB3" || !c.Mock {
		t.Errorf("expected file and env values got %+v", c)
	}
	if c.Endpoint != "/stage" || c.Y.HomeTimeout != "30s" {
		t.Errorf("expected untouched keys to keep defaults got %+v", c)
	}

	sc, err := c.StageConfig()
	if err != nil {
		t.Fatal(err)
	}
	if sc.Addr != "/dev/ttyUSB3" || !sc.Mock {
		t.Errorf("expected device and mock carried over got %+v", sc)
	}
	if sc.Y.Limits == nil || sc.Y.Limits.Min != -5 || sc.Y.Limits.Max != 5 {
		t.Errorf("expected Y limits -5, 5 got %v", sc.Y.Limits)
	}
	if sc.X.Limits != nil {
		t.Errorf("expected X to use controller limits got %v", sc.X.Limits)
	}
	if sc.Y.MoveTimeout != 2*time.Second {
		t.Errorf("expected 2s got %v", sc.Y.MoveTimeout)
	}
}

func TestStageConfigRejectsBadDuration(t *testing.T) {
	c := Defaults()
	c.Z.HomeTimeout = "soon"
	if _, err := c.StageConfig(); err == nil {
		t.Errorf("expected an error for HomeTimeout=soon")
	}
}

func mockMux(t *testing.T) http.Handler {
	t.Helper()
	c := Defaults()
	c.Mock = true
	sc, err := c.StageConfig()
	if err != nil {
		t.Fatal(err)
	}
	s, err := asi.NewStage(sc)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return BuildMux(c, s)
}

func request(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestMuxServesStage(t *testing.T) {
	h := mockMux(t)
	w := request(h, http.MethodGet, "/stage/axis/x/pos", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"f64":0}` {
		t.Errorf("expected 200 {\"f64\":0} got %d %s", w.Code, w.Body.String())
	}
	w = request(h, http.MethodPost, "/stage/raw", `{"str": "WHO"}`)
	if !strings.Contains(w.Body.String(), asi.Model) {
		t.Errorf("expected WHO reply to contain %s got %s", asi.Model, w.Body.String())
	}
	w = request(h, http.MethodPost, "/stage/axis/x/pos", `{"f64": 500}`)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "beyond limits") {
		t.Errorf("expected out of range error got %d %s", w.Code, w.Body.String())
	}
}

func TestMuxLock(t *testing.T) {
	h := mockMux(t)
	request(h, http.MethodPost, "/stage/lock", `{"bool": true}`)
	if w := request(h, http.MethodPost, "/stage/zero", ""); w.Code != http.StatusLocked {
		t.Errorf("expected 423 while locked got %d", w.Code)
	}
	if w := request(h, http.MethodGet, "/stage/axis/y/inposition", ""); w.Code != http.StatusOK {
		t.Errorf("expected reads while locked to pass got %d", w.Code)
	}
	request(h, http.MethodPost, "/stage/lock", `{"bool": false}`)
	if w := request(h, http.MethodPost, "/stage/zero", ""); w.Code != http.StatusOK {
		t.Errorf("expected 200 after unlock got %d", w.Code)
	}
}

func TestEndpoints(t *testing.T) {
	w := request(mockMux(t), http.MethodGet, "/endpoints", "")
	graph := map[string][]string{}
	if err := json.NewDecoder(w.Body).Decode(&graph); err != nil {
		t.Fatal(err)
	}
	routes := strings.Join(graph["/stage"], ",")
	for _, want := range []string{"POST /zero", "POST /raw", "GET /lock", "POST /axis/{axis}/jog", "GET /axis/{axis}/homed"} {
		if !strings.Contains(routes, want) {
			t.Errorf("expected %q in %s", want, routes)
		}
	}
}
