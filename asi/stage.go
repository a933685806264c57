package asi

import (
	"log"
	"sync"

	"github.com/nasa-jpl/asistage/util"
)

// Config holds the settings for NewStage
type Config struct {
	// Addr is the serial port or host:port of the controller.  Empty means
	// probe the serial ports of this machine.
	Addr string

	// Serial selects RS232 (true) or TCP through a terminal server (false)
	// when Addr is given
	Serial bool

	// Mock replaces the controller with a simulated one
	Mock bool

	X, Y, Z AxisConfig
}

// Stage is an MS2000 with its three axes.  On construction any axis away from
// the origin triggers homing, without waiting for it to finish.
type Stage struct {
	drv Driver
	x   *Motor
	y   *Motor
	z   *Motor

	closeOnce sync.Once
	closeErr  error
}

// NewStage connects to the controller described by cfg
func NewStage(cfg Config) (*Stage, error) {
	var drv Driver
	if cfg.Mock {
		drv = NewMS2000Conn(NewMock())
	} else {
		m, err := Open(cfg.Addr, cfg.Serial)
		if err != nil {
			return nil, err
		}
		drv = m
	}
	s, err := NewStageWithDriver(drv, cfg)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return s, nil
}

// NewStageWithDriver builds a Stage over an existing driver.  The stage takes
// ownership of drv and closes it in Close.
func NewStageWithDriver(drv Driver, cfg Config) (*Stage, error) {
	s := &Stage{drv: drv}
	var err error
	if s.x, err = NewMotor(drv, X, cfg.X); err != nil {
		return nil, err
	}
	if s.y, err = NewMotor(drv, Y, cfg.Y); err != nil {
		return nil, err
	}
	if s.z, err = NewMotor(drv, Z, cfg.Z); err != nil {
		return nil, err
	}
	s.autoHome()
	return s, nil
}

// autoHome issues a home if any axis is away from the origin.  Homing moves
// all axes, so it is sent at most once.  Failures are only logged.
func (s *Stage) autoHome() {
	for _, m := range s.motors() {
		homed, err := m.Homed()
		if err != nil {
			log.Printf("asi: auto-home: could not read %s position: %v", m.axis, err)
			continue
		}
		if homed {
			continue
		}
		if err := m.Home(false); err != nil {
			log.Printf("asi: auto-home: %s at %g mm, homing failed: %v", m.axis, m.LastPosition(), err)
			continue
		}
		log.Printf("asi: auto-home: %s at %g mm, homing", m.axis, m.LastPosition())
		return
	}
}

func (s *Stage) motors() []*Motor {
	return []*Motor{s.x, s.y, s.z}
}

// X returns the X axis
func (s *Stage) X() *Motor { return s.x }

// Y returns the Y axis
func (s *Stage) Y() *Motor { return s.y }

// Z returns the Z axis
func (s *Stage) Z() *Motor { return s.z }

// Axis returns the motor for "x", "Y", etc
func (s *Stage) Axis(name string) (*Motor, error) {
	a, err := ParseAxis(name)
	if err != nil {
		return nil, err
	}
	return s.motors()[a], nil
}

// Zero defines the current position of all axes as the origin
func (s *Stage) Zero() error {
	return s.drv.Zero()
}

// Raw sends a command to the controller verbatim
func (s *Stage) Raw(cmd string) (string, error) {
	return s.drv.Raw(cmd)
}

// Close the connection to the controller.  Close may be called more than once.
func (s *Stage) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.drv.Close()
	})
	return s.closeErr
}

// the methods below address an axis by name, for generichttp/motion

// GetPos returns the position of an axis in mm
func (s *Stage) GetPos(axis string) (float64, error) {
	m, err := s.Axis(axis)
	if err != nil {
		return 0, err
	}
	return m.Position()
}

// MoveAbs starts a move of an axis to pos mm
func (s *Stage) MoveAbs(axis string, pos float64) error {
	m, err := s.Axis(axis)
	if err != nil {
		return err
	}
	return m.MoveTo(pos, false)
}

// MoveRel starts a move of an axis by delta mm
func (s *Stage) MoveRel(axis string, delta float64) error {
	m, err := s.Axis(axis)
	if err != nil {
		return err
	}
	return m.MoveBy(delta, false)
}

// Home starts homing.  All axes home together.
func (s *Stage) Home(axis string) error {
	m, err := s.Axis(axis)
	if err != nil {
		return err
	}
	return m.Home(false)
}

// GetHomed returns the homed approximation for an axis
func (s *Stage) GetHomed(axis string) (bool, error) {
	m, err := s.Axis(axis)
	if err != nil {
		return false, err
	}
	return m.Homed()
}

// GetVelocity returns the speed setting of an axis in mm/s
func (s *Stage) GetVelocity(axis string) (float64, error) {
	m, err := s.Axis(axis)
	if err != nil {
		return 0, err
	}
	return m.MaxVelocity()
}

// SetVelocity sets the speed setting of an axis in mm/s
func (s *Stage) SetVelocity(axis string, v float64) error {
	m, err := s.Axis(axis)
	if err != nil {
		return err
	}
	return m.SetMaxVelocity(v)
}

// Jog starts continuous motion of an axis in the direction of v
func (s *Stage) Jog(axis string, v float64) error {
	m, err := s.Axis(axis)
	if err != nil {
		return err
	}
	return m.MoveVelocity(Velocity(v))
}

// Stop halts an axis
func (s *Stage) Stop(axis string) error {
	m, err := s.Axis(axis)
	if err != nil {
		return err
	}
	return m.Stop()
}

// GetInPosition returns true if the stage is not moving
func (s *Stage) GetInPosition(axis string) (bool, error) {
	m, err := s.Axis(axis)
	if err != nil {
		return false, err
	}
	moving, err := m.Moving()
	return !moving, err
}

// GetLimits returns the travel limits of an axis in mm
func (s *Stage) GetLimits(axis string) (util.Limiter, error) {
	m, err := s.Axis(axis)
	if err != nil {
		return util.Limiter{}, err
	}
	return m.PositionLimits()
}

