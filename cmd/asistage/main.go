package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/theckman/yacspin"

	"github.com/nasa-jpl/asistage/asi"
	"github.com/nasa-jpl/asistage/stagesrv"
)

// ConfigFileName is shared with asistagesrv
const ConfigFileName = "asistage.yml"

// Version is the version number.  Typically injected via ldflags with git build
var Version = "1"

func usage() {
	str := `asistage performs one operation on an ASI MS2000 and exits.
The controller is found from asistage.yml and ASISTAGE_ variables as with
asistagesrv.  Positions are in mm and velocities in mm/s.

Usage:
	asistage <command> [args]

Commands:
	find                  probe serial ports for a controller
	where                 print the position of all axes
	move <axis> <mm>      move to an absolute position and wait
	moveby <axis> <mm>    move by a relative amount and wait
	home                  home all axes and wait
	zero                  make the current position the origin
	speed <axis> [mm/s]   print or set the speed
	jog <axis> <mm/s>     move continuously until stop
	stop <axis>           stop an axis
	limits <axis>         print the travel limits
	raw <command>         send a command verbatim and print the reply
	version`
	fmt.Println(str)
}

func need(args []string, n int) {
	if len(args) < n {
		usage()
		os.Exit(1)
	}
}

func parseF64(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Fatal(err)
	}
	return f
}

// session is an open controller with the axes built on demand
type session struct {
	drv asi.Driver
	cfg asi.Config
}

func connect() *session {
	c, err := stagesrv.Load(koanf.New("."), ConfigFileName)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	sc, err := c.StageConfig()
	if err != nil {
		log.Fatal(err)
	}
	s := &session{cfg: sc}
	if sc.Mock {
		s.drv = asi.NewMS2000Conn(asi.NewMock())
		return s
	}
	m, err := asi.Open(sc.Addr, sc.Serial)
	if err != nil {
		log.Fatal(err)
	}
	s.drv = m
	return s
}

func (s *session) motor(name string) *asi.Motor {
	a, err := asi.ParseAxis(name)
	if err != nil {
		log.Fatal(err)
	}
	cfgs := map[asi.Axis]asi.AxisConfig{asi.X: s.cfg.X, asi.Y: s.cfg.Y, asi.Z: s.cfg.Z}
	m, err := asi.NewMotor(s.drv, a, cfgs[a])
	if err != nil {
		log.Fatal(err)
	}
	return m
}

// withSpinner runs fcn while a spinner shows msg
func withSpinner(msg string, fcn func() error) error {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " " + msg,
		StopCharacter:     "done",
		StopFailCharacter: "failed",
	})
	if err != nil {
		// no terminal to draw on, just do the work
		return fcn()
	}
	if err := spinner.Start(); err != nil {
		return fcn()
	}
	err = fcn()
	if err != nil {
		spinner.StopFail()
		return err
	}
	spinner.Stop()
	return nil
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return
	}
	cmd := strings.ToLower(args[0])
	switch cmd {
	case "help":
		usage()
		return
	case "version":
		fmt.Printf("asistage version %v\n", Version)
		return
	case "find":
		addr, err := asi.Discover(asi.CandidatePorts(), asi.SerialDial)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(addr)
		return
	}

	s := connect()
	defer s.drv.Close()
	var err error
	switch cmd {
	case "where":
		var pos []float64
		pos, err = s.drv.Position(asi.AllAxes)
		if err == nil {
			for i, a := range asi.AllAxes.Members() {
				fmt.Printf("%s %.4f\n", a, asi.ToMM(pos[i]))
			}
		}
	case "move":
		need(args, 3)
		m, pos := s.motor(args[1]), parseF64(args[2])
		err = withSpinner(fmt.Sprintf("moving %s to %g mm", m.Axis(), pos), func() error {
			return m.MoveTo(pos, true)
		})
	case "moveby":
		need(args, 3)
		m, delta := s.motor(args[1]), parseF64(args[2])
		err = withSpinner(fmt.Sprintf("moving %s by %g mm", m.Axis(), delta), func() error {
			return m.MoveBy(delta, true)
		})
	case "home":
		m := s.motor("x")
		err = withSpinner("homing", func() error { return m.Home(true) })
	case "zero":
		err = s.drv.Zero()
	case "speed":
		need(args, 2)
		m := s.motor(args[1])
		if len(args) > 2 {
			err = m.SetMaxVelocity(parseF64(args[2]))
			break
		}
		var v float64
		v, err = m.MaxVelocity()
		if err == nil {
			fmt.Printf("%g\n", v)
		}
	case "jog":
		need(args, 3)
		m, v := s.motor(args[1]), parseF64(args[2])
		speed := v
		if speed < 0 {
			speed = -speed
		}
		if err = m.SetMaxVelocity(speed); err == nil {
			err = m.MoveVelocity(asi.Velocity(v))
		}
	case "stop":
		need(args, 2)
		err = s.motor(args[1]).Stop()
	case "limits":
		need(args, 2)
		m := s.motor(args[1])
		lim, lerr := m.PositionLimits()
		if lerr == nil {
			fmt.Printf("%g %g\n", lim.Min, lim.Max)
		}
		err = lerr
	case "raw":
		need(args, 2)
		var resp string
		resp, err = s.drv.Raw(strings.Join(args[1:], " "))
		if err == nil {
			fmt.Println(resp)
		}
	default:
		log.Fatal("unknown command")
	}
	if err != nil {
		log.Fatal(err)
	}
}
