// Package stagesrv configures and builds the HTTP server for an MS2000 stage
package stagesrv

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"github.com/nasa-jpl/asistage/asi"
	"github.com/nasa-jpl/asistage/generichttp"
	"github.com/nasa-jpl/asistage/server/middleware/locker"
	"github.com/nasa-jpl/asistage/util"
)

// EnvPrefix is the prefix of environment variables that override the config file
const EnvPrefix = "ASISTAGE_"

// envKeys maps environment variables, less EnvPrefix, to config keys
var envKeys = map[string]string{
	"ADDR":     "Addr",
	"DEVICE":   "Device",
	"SERIAL":   "Serial",
	"ENDPOINT": "Endpoint",
	"MOCK":     "Mock",
}

// AxisSetup holds the settings of one axis
type AxisSetup struct {
	// Limits are the travel limits in mm.  Min == Max == 0 uses the limits
	// reported by the controller.
	Limits util.Limiter `koanf:"Limits" yaml:"Limits"`

	// MoveTimeout bounds a blocking move, e.g. "30s"
	MoveTimeout string `koanf:"MoveTimeout" yaml:"MoveTimeout"`

	// HomeTimeout bounds a blocking home, e.g. "30s"
	HomeTimeout string `koanf:"HomeTimeout" yaml:"HomeTimeout"`
}

// Config is a struct that holds the initialization parameters of the server
type Config struct {
	// Addr is the address to listen at
	Addr string `koanf:"Addr" yaml:"Addr"`

	// Device is the serial port or host:port of the MS2000.  Empty probes the
	// serial ports of this machine.
	Device string `koanf:"Device" yaml:"Device"`

	// Serial determines if the connection is serial/RS232 (True) or TCP (False)
	Serial bool `koanf:"Serial" yaml:"Serial"`

	// Endpoint is the path the stage routes are served under, e.g. "/stage"
	Endpoint string `koanf:"Endpoint" yaml:"Endpoint"`

	// Mock replaces the controller with a simulated one
	Mock bool `koanf:"Mock" yaml:"Mock"`

	X AxisSetup `koanf:"X" yaml:"X"`
	Y AxisSetup `koanf:"Y" yaml:"Y"`
	Z AxisSetup `koanf:"Z" yaml:"Z"`
}

// Defaults returns the configuration used when nothing else is given
func Defaults() Config {
	ax := AxisSetup{
		MoveTimeout: asi.DefaultMoveTimeout.String(),
		HomeTimeout: asi.DefaultHomeTimeout.String(),
	}
	return Config{
		Addr:     ":8000",
		Serial:   true,
		Endpoint: "/stage",
		X:        ax,
		Y:        ax,
		Z:        ax,
	}
}

// Load populates k with the defaults, then the yaml file at path if it exists,
// then the environment, and returns the result
func Load(k *koanf.Koanf, path string) (Config, error) {
	c := Config{}
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return c, err
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, fmt.Errorf("loading %s: %w", path, err)
	}
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKeys[strings.TrimPrefix(s, EnvPrefix)]
	}), nil)
	if err != nil {
		return c, err
	}
	err = k.Unmarshal("", &c)
	return c, err
}

func (a AxisSetup) axisConfig(name string) (asi.AxisConfig, error) {
	var (
		ac  asi.AxisConfig
		err error
	)
	if a.Limits != (util.Limiter{}) {
		lim := a.Limits
		ac.Limits = &lim
	}
	if ac.MoveTimeout, err = parseDuration(a.MoveTimeout); err != nil {
		return ac, fmt.Errorf("%s MoveTimeout: %w", name, err)
	}
	if ac.HomeTimeout, err = parseDuration(a.HomeTimeout); err != nil {
		return ac, fmt.Errorf("%s HomeTimeout: %w", name, err)
	}
	return ac, nil
}

// parseDuration is time.ParseDuration where "" is zero
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// StageConfig converts c to the arguments of asi.NewStage
func (c Config) StageConfig() (asi.Config, error) {
	sc := asi.Config{Addr: c.Device, Serial: c.Serial, Mock: c.Mock}
	var err error
	if sc.X, err = c.X.axisConfig("X"); err != nil {
		return sc, err
	}
	if sc.Y, err = c.Y.axisConfig("Y"); err != nil {
		return sc, err
	}
	if sc.Z, err = c.Z.axisConfig("Z"); err != nil {
		return sc, err
	}
	return sc, nil
}

// BuildMux mounts the routes of s under c.Endpoint behind a lock, with
// request logging.  The root serves /endpoints, which returns a map of
// mount point to its routes as JSON.
func BuildMux(c Config, s *asi.Stage) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)

	httper := asi.NewHTTPWrapper(s)
	lock := locker.New()
	locker.Inject(httper, lock)

	// prepare the URL, "stage" => "/stage"
	hndlS := generichttp.SubMuxSanitize(c.Endpoint)
	supergraph := map[string][]string{hndlS: httper.RT().Endpoints()}

	r := chi.NewRouter()
	r.Use(lock.Check)
	httper.RT().Bind(r)
	root.Mount(hndlS, r)

	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}
