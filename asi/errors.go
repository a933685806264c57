package asi

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDeviceMismatch is generated when the attached device does not
	// identify as an MS2000
	ErrDeviceMismatch = errors.New("not an ASI MS2000 stage controller")

	// ErrDeviceNotFound is generated when no candidate port answers as an MS2000
	ErrDeviceNotFound = errors.New("no ASI MS2000 stage controller found")

	// ErrInvalidArgument is generated before any I/O when a call is malformed,
	// e.g. no axes selected or a non-finite value
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDeviceBusy is generated when a move or speed change is requested
	// while the controller is moving
	ErrDeviceBusy = errors.New("device is busy moving")

	// ErrJogSpeedUnset is generated when MoveVelocity is called before the
	// jog speed was configured with SetMaxVelocity.  Jogging uses the
	// controller speed setting, not the requested magnitude.
	ErrJogSpeedUnset = fmt.Errorf("%w: jog speed must be set with SetMaxVelocity before MoveVelocity", ErrInvalidArgument)

	// ErrMoveTimeout matches a TimeoutError from a blocking move
	ErrMoveTimeout = errors.New("move timed out")

	// ErrHomeTimeout matches a TimeoutError from blocking homing
	ErrHomeTimeout = errors.New("homing timed out")

	// ControllerErrors maps the code in a ":N-<code>" reply to a message
	ControllerErrors = map[int]string{
		1:  "Unknown Command",
		2:  "Unrecognized Axis Parameter",
		3:  "Missing Parameters",
		4:  "Parameter Out of Range",
		5:  "Operation Failed",
		6:  "Undefined Error",
		7:  "Invalid Card Address",
		21: "Serial Command Halted by HALT",
	}
)

// CommunicationError is generated when the transport fails to write or read
type CommunicationError struct {
	Cmd string
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("communication failure on %q: %v", e.Cmd, e.Err)
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// ProtocolError is generated when a reply does not have the expected shape
type ProtocolError struct {
	Cmd  string
	Resp string
	Msg  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed reply to %q: %s, got %q", e.Cmd, e.Msg, e.Resp)
}

// ControllerError is generated when the controller answers ":N-<code>"
type ControllerError struct {
	Cmd  string
	Code int
}

func (e ControllerError) Error() string {
	if s, ok := ControllerErrors[e.Code]; ok {
		return fmt.Sprintf("%q rejected: N-%d - %s", e.Cmd, e.Code, s)
	}
	return fmt.Sprintf("%q rejected: N-%d - UNKNOWN ERROR CODE", e.Cmd, e.Code)
}

// OutOfRangeError is generated when a move target lies outside the travel limits
type OutOfRangeError struct {
	Axis      Axis
	Requested float64
	Min       float64
	Max       float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("requested move of %s to %g mm beyond limits, min: %g, max: %g", e.Axis, e.Requested, e.Min, e.Max)
}

// TimeoutError is generated when a blocking move or home does not finish in time
type TimeoutError struct {
	// Op is "move" or "home"
	Op    string
	Bound time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Op == opHome {
		return fmt.Sprintf("homing timed out after %v", e.Bound)
	}
	return fmt.Sprintf("move timed out after %v", e.Bound)
}

// Is makes errors.Is(err, ErrMoveTimeout) and errors.Is(err, ErrHomeTimeout) work
func (e *TimeoutError) Is(target error) bool {
	switch target {
	case ErrHomeTimeout:
		return e.Op == opHome
	case ErrMoveTimeout:
		return e.Op == opMove
	}
	return false
}

const (
	opMove = "move"
	opHome = "home"
)
