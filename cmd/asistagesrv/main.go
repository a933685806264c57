package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/knadh/koanf"
	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/asistage/asi"
	"github.com/nasa-jpl/asistage/stagesrv"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "asistage.yml"
	k              = koanf.New(".")
	cfg            stagesrv.Config
)

func setupconfig() {
	var err error
	cfg, err = stagesrv.Load(k, ConfigFileName)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
}

func root() {
	str := `asistagesrv exposes an ASI MS2000 XYZ stage controller over HTTP
This enables a server-client architecture, and the clients can leverage the
excellent HTTP libraries for any programming language.

Usage:
	asistagesrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `asistagesrv is amenable to configuration via its .yml file, asistage.yml in
the working directory.  For a primer on YAML, see https://yaml.org/start.html

Use mkconf to write the defaults to asistage.yml.  Keys are:
	Addr      address to listen at, e.g. ":8000"
	Device    serial port (/dev/ttyUSB0, COM3) or host:port of the controller,
	          if empty the serial ports of this machine are probed
	Serial    true for RS232, false for TCP via a terminal server
	Endpoint  URL the stage is served under, e.g. "/stage"
	Mock      true to serve a simulated controller
	X, Y, Z   per-axis Limits (Min, Max in mm, 0/0 uses the controller's),
	          MoveTimeout and HomeTimeout (e.g. "30s")

The environment variables ASISTAGE_ADDR, ASISTAGE_DEVICE, ASISTAGE_SERIAL,
ASISTAGE_ENDPOINT and ASISTAGE_MOCK override the file.

Positions are in mm and velocities in mm/s.  GET /endpoints lists the routes.`
	fmt.Println(str)
}

func mkconf() {
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(cfg)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	err := yml.NewEncoder(os.Stdout).Encode(cfg)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("asistagesrv version %v\n", Version)
}

func run() {
	sc, err := cfg.StageConfig()
	if err != nil {
		log.Fatal(err)
	}
	stage, err := asi.NewStage(sc)
	if err != nil {
		log.Fatal(err)
	}
	defer stage.Close()
	mux := stagesrv.BuildMux(cfg, stage)
	log.Println("now listening for requests at ", cfg.Addr)
	log.Println(http.ListenAndServe(cfg.Addr, mux))
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd := strings.ToLower(args[1])
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
