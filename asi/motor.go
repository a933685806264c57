package asi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nasa-jpl/asistage/util"
)

const (
	// DefaultMoveTimeout bounds a blocking MoveTo
	DefaultMoveTimeout = 30 * time.Second

	// DefaultHomeTimeout bounds a blocking Home
	DefaultHomeTimeout = 30 * time.Second

	// DefaultPollInterval is the spacing of status queries while blocking
	DefaultPollInterval = 50 * time.Millisecond

	// StopRetryDelay is how long Stop waits before its one retry
	StopRetryDelay = 100 * time.Millisecond
)

// Driver is the part of the MS2000 protocol a Motor needs.  *MS2000 implements it.
type Driver interface {
	Status() (bool, error)
	Position(AxisSet) ([]float64, error)
	Limits(AxisSet) ([][2]float64, error)
	Move(map[Axis]float64, bool) error
	Home() error
	Zero() error
	GetSpeed(AxisSet) ([]float64, error)
	SetSpeed(map[Axis]float64) error
	Raw(string) (string, error)
	Close() error
}

// LinearStage is a single linear axis in mm
type LinearStage interface {
	Position() (float64, error)
	PositionLimits() (util.Limiter, error)
	MoveTo(float64, bool) error
	Home(bool) error
	Stop() error
	Moving() (bool, error)
}

var _ LinearStage = (*Motor)(nil)

// Velocity is a signed speed in mm/s
type Velocity float64

// AxisConfig holds the per-axis settings of a Motor.  Zero durations take
// the package defaults.
type AxisConfig struct {
	// Limits overrides the travel limits reported by the controller, in mm
	Limits *util.Limiter

	MoveTimeout  time.Duration
	HomeTimeout  time.Duration
	PollInterval time.Duration
}

// Motor is one axis of an MS2000 in millimeters.  Motors of the same
// controller share its Driver.
type Motor struct {
	drv  Driver
	axis Axis

	moveTimeout    time.Duration
	homeTimeout    time.Duration
	pollInterval   time.Duration
	stopRetryDelay time.Duration

	mu          sync.Mutex
	limits      *util.Limiter
	lastPos     float64
	jogSpeedSet bool
}

// NewMotor returns a Motor for one axis of drv
func NewMotor(drv Driver, axis Axis, cfg AxisConfig) (*Motor, error) {
	if !axis.valid() {
		return nil, fmt.Errorf("%w: axis must be X, Y or Z", ErrInvalidArgument)
	}
	m := &Motor{
		drv:            drv,
		axis:           axis,
		moveTimeout:    durOr(cfg.MoveTimeout, DefaultMoveTimeout),
		homeTimeout:    durOr(cfg.HomeTimeout, DefaultHomeTimeout),
		pollInterval:   durOr(cfg.PollInterval, DefaultPollInterval),
		stopRetryDelay: StopRetryDelay,
	}
	if cfg.Limits != nil {
		if !cfg.Limits.Valid() {
			return nil, fmt.Errorf("%w: %s limits %+v are not a valid range", ErrInvalidArgument, axis, *cfg.Limits)
		}
		lim := *cfg.Limits
		m.limits = &lim
	}
	return m, nil
}

func durOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// Axis returns which axis this is
func (m *Motor) Axis() Axis {
	return m.axis
}

// LastPosition returns the position read by the most recent Position call
func (m *Motor) LastPosition() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPos
}

// Position returns the current position in mm
func (m *Motor) Position() (float64, error) {
	native, err := m.readNative()
	return ToMM(native), err
}

// readNative reads this axis in native units and updates LastPosition
func (m *Motor) readNative() (float64, error) {
	// the controller is always asked for all three axes
	pos, err := m.drv.Position(AllAxes)
	if err != nil {
		return 0, err
	}
	if len(pos) != 3 {
		return 0, &ProtocolError{Cmd: "WHERE X Y Z", Msg: fmt.Sprintf("expected 3 coordinates, got %d", len(pos))}
	}
	native := pos[m.axis]
	m.mu.Lock()
	m.lastPos = ToMM(native)
	m.mu.Unlock()
	return native, nil
}

// PositionLimits returns the travel limits in mm, either as configured or
// as read from the controller the first time this is called
func (m *Motor) PositionLimits() (util.Limiter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limits != nil {
		return *m.limits, nil
	}
	lims, err := m.drv.Limits(AllAxes)
	if err != nil {
		return util.Limiter{}, err
	}
	if len(lims) != 3 {
		return util.Limiter{}, &ProtocolError{Cmd: "SETLOW X? Y? Z?", Msg: fmt.Sprintf("expected 3 limit pairs, got %d", len(lims))}
	}
	pair := lims[m.axis]
	m.limits = &util.Limiter{Min: ToMM(pair[0]), Max: ToMM(pair[1])}
	return *m.limits, nil
}

func (m *Motor) checkTarget(mm float64) error {
	if math.IsNaN(mm) || math.IsInf(mm, 0) {
		return fmt.Errorf("%w: %s target must be a finite number, got %v", ErrInvalidArgument, m.axis, mm)
	}
	lim, err := m.PositionLimits()
	if err != nil {
		return err
	}
	if !lim.Check(mm) {
		return &OutOfRangeError{Axis: m.axis, Requested: mm, Min: lim.Min, Max: lim.Max}
	}
	return nil
}

// MoveTo moves to an absolute position in mm.  If blocking, it returns once
// the stage stops or fails with a TimeoutError after the move timeout.
func (m *Motor) MoveTo(mm float64, blocking bool) error {
	if err := m.checkTarget(mm); err != nil {
		return err
	}
	err := m.drv.Move(map[Axis]float64{m.axis: util.RoundTo(ToNative(mm), wirePrecision)}, false)
	if err != nil {
		return err
	}
	if blocking {
		return m.wait(opMove, m.moveTimeout)
	}
	return nil
}

// MoveBy moves by delta mm.  The destination is checked against the limits
// using a fresh position.
func (m *Motor) MoveBy(delta float64, blocking bool) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return fmt.Errorf("%w: %s delta must be a finite number, got %v", ErrInvalidArgument, m.axis, delta)
	}
	pos, err := m.Position()
	if err != nil {
		return err
	}
	if err := m.checkTarget(pos + delta); err != nil {
		return err
	}
	err = m.drv.Move(map[Axis]float64{m.axis: util.RoundTo(ToNative(delta), wirePrecision)}, true)
	if err != nil {
		return err
	}
	if blocking {
		return m.wait(opMove, m.moveTimeout)
	}
	return nil
}

// Moving returns true if the stage is in motion.  The controller reports
// status for all axes at once.
func (m *Motor) Moving() (bool, error) {
	idle, err := m.drv.Status()
	if err != nil {
		return false, err
	}
	return !idle, nil
}

// wait polls Moving until it reads false or timeout elapses
func (m *Motor) wait(op string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	// burst of 1: the first poll is immediate
	pace := rate.NewLimiter(rate.Every(m.pollInterval), 1)
	for {
		if err := pace.Wait(ctx); err != nil {
			return &TimeoutError{Op: op, Bound: timeout}
		}
		moving, err := m.Moving()
		if err != nil {
			return err
		}
		if !moving {
			return nil
		}
	}
}

// MoveVelocity starts continuous motion in the direction of v until Stop.
//
// The controller has no velocity mode, so this is a very long relative move.
// Only the sign of v is used; the speed is the one last set with
// SetMaxVelocity, which must have been called first.
func (m *Motor) MoveVelocity(v Velocity) error {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return fmt.Errorf("%w: %s velocity must be finite and nonzero, got %v", ErrInvalidArgument, m.axis, f)
	}
	m.mu.Lock()
	set := m.jogSpeedSet
	m.mu.Unlock()
	if !set {
		return ErrJogSpeedUnset
	}
	dist := JogDistance
	if f < 0 {
		dist = -dist
	}
	return m.drv.Move(map[Axis]float64{m.axis: dist}, true)
}

// Stop halts motion by commanding a move to the current position.  If the
// controller is busy it waits StopRetryDelay and tries once more.
func (m *Motor) Stop() error {
	err := m.holdPosition()
	if errors.Is(err, ErrDeviceBusy) {
		log.Printf("asi: %s busy on stop, retrying in %v", m.axis, m.stopRetryDelay)
		time.Sleep(m.stopRetryDelay)
		err = m.holdPosition()
	}
	return err
}

func (m *Motor) holdPosition() error {
	native, err := m.readNative()
	if err != nil {
		return err
	}
	return m.drv.Move(map[Axis]float64{m.axis: native}, false)
}

// Home moves the stage to the origin.  The controller homes all three axes
// together.  If blocking, it returns once the stage stops or fails with a
// TimeoutError after the home timeout.
func (m *Motor) Home(blocking bool) error {
	if err := m.drv.Home(); err != nil {
		return err
	}
	if blocking {
		return m.wait(opHome, m.homeTimeout)
	}
	return nil
}

// Homed approximates whether the axis is homed.  The controller has no homed
// flag, so an axis within HomedTolerance of the origin reads as homed, even
// if it was only parked there.
func (m *Motor) Homed() (bool, error) {
	pos, err := m.Position()
	if err != nil {
		return false, err
	}
	return math.Abs(pos) < HomedTolerance, nil
}

// MaxVelocity returns the speed setting in mm/s
func (m *Motor) MaxVelocity() (float64, error) {
	speeds, err := m.drv.GetSpeed(Axes(m.axis))
	if err != nil {
		return 0, err
	}
	if len(speeds) != 1 {
		return 0, &ProtocolError{Cmd: "SPEED " + m.axis.String() + "?", Msg: fmt.Sprintf("expected 1 speed, got %d", len(speeds))}
	}
	return speeds[0], nil
}

// SetMaxVelocity sets the speed setting in mm/s.  This is also the jog speed.
func (m *Motor) SetMaxVelocity(v float64) error {
	err := m.drv.SetSpeed(map[Axis]float64{m.axis: v})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.jogSpeedSet = true
	m.mu.Unlock()
	return nil
}

// Acceleration always returns DefaultAcceleration
func (m *Motor) Acceleration() float64 {
	return DefaultAcceleration
}

// SetAcceleration does nothing; the controller does not expose acceleration
func (m *Motor) SetAcceleration(float64) {}
