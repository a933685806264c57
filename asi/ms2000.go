package asi

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/nasa-jpl/asistage/comm"
	"github.com/nasa-jpl/asistage/util"
)

// the MS2000 speaks a space separated ASCII language.  Queries carry a ?
// after the axis letter and sets carry =value:
//
//	"SPEED X? Y?"  -> ":A X=7.500000 Y=7.500000"
//	"SPEED X=2.5"  -> ":A"
//	"WHERE X Y"    -> ":A 12345 -6789"
//	"STATUS"       -> "N" when idle, "B" when busy
//
// rejected commands answer ":N-<code>".  Positions and limits are in tenths
// of a micrometer, speeds in mm/s.

const (
	busyToken = "B"

	// wirePrecision is the number of decimal places sent for moves and speeds
	wirePrecision = 3
)

// makeSerConf makes a new serial.Config with correct parity, baud, etc, set.
func makeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        9600,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 2 * time.Second}
}

// MS2000 is the low-level driver for an MS2000 controller.  Each method is
// one (or two, for Limits) command/reply exchange; exchanges are serialized.
type MS2000 struct {
	*comm.RemoteDevice
}

// NewMS2000 returns a driver for the controller at addr.  It does not open
// the connection, call Open for that or use the package level Open.
func NewMS2000(addr string, serial bool) *MS2000 {
	rd := comm.NewRemoteDevice(addr, serial, &comm.CR, makeSerConf(addr))
	return &MS2000{RemoteDevice: rd}
}

// NewMS2000Conn returns a driver that talks over an already open connection
func NewMS2000Conn(conn io.ReadWriteCloser) *MS2000 {
	return &MS2000{RemoteDevice: comm.NewAttachedDevice(conn, &comm.CR)}
}

// Close the connection to the controller
func (m *MS2000) Close() error {
	m.Lock()
	defer m.Unlock()
	return m.RemoteDevice.Close()
}

func (m *MS2000) query(cmd string) (string, error) {
	m.Lock()
	resp, err := m.SendRecv([]byte(cmd))
	m.Unlock()
	if err != nil {
		return "", &CommunicationError{Cmd: cmd, Err: err}
	}
	s := strings.TrimSpace(string(resp))
	if strings.HasPrefix(s, ":N") {
		code, err := strconv.Atoi(strings.TrimPrefix(s, ":N-"))
		if err != nil {
			return s, &ProtocolError{Cmd: cmd, Resp: s, Msg: "unparseable error code"}
		}
		return s, ControllerError{Cmd: cmd, Code: code}
	}
	return s, nil
}

// parseValues pulls the numbers out of a reply, dropping the ack and any
// "X=" prefixes
func parseValues(cmd, resp string) ([]float64, error) {
	fields := strings.Fields(resp)
	if len(fields) > 0 && strings.HasPrefix(fields[0], ":") {
		fields = fields[1:]
	}
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		if idx := strings.IndexByte(f, '='); idx >= 0 {
			f = f[idx+1:]
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, &ProtocolError{Cmd: cmd, Resp: resp, Msg: fmt.Sprintf("%q is not a number", f)}
		}
		out = append(out, v)
	}
	return out, nil
}

func checkAxes(axes AxisSet) error {
	if axes.Count() == 0 {
		return fmt.Errorf("%w: must specify at least one axis", ErrInvalidArgument)
	}
	return nil
}

func checkFinite(what string, a Axis, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s %s must be a finite number, got %v", ErrInvalidArgument, a, what, v)
	}
	return nil
}

// queryCmd builds "VERB X? Y?" (suffix "?") or "WHERE X Y" (suffix "")
func queryCmd(verb string, axes AxisSet, suffix string) string {
	pieces := []string{verb}
	for _, a := range axes.Members() {
		pieces = append(pieces, a.String()+suffix)
	}
	return strings.Join(pieces, " ")
}

// setCmd builds "VERB X=1 Z=2" with fields in X, Y, Z order
func setCmd(verb string, values map[Axis]float64, places int) string {
	pieces := []string{verb}
	for _, a := range allAxes {
		v, ok := values[a]
		if !ok {
			continue
		}
		if places >= 0 {
			v = util.RoundTo(v, places)
		}
		pieces = append(pieces, a.String()+"="+util.FormatFloat(v))
	}
	return strings.Join(pieces, " ")
}

func checkValues(what string, values map[Axis]float64) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: must specify at least one axis", ErrInvalidArgument)
	}
	for a, v := range values {
		if !a.valid() {
			return fmt.Errorf("%w: unknown axis %v", ErrInvalidArgument, a)
		}
		if err := checkFinite(what, a, v); err != nil {
			return err
		}
	}
	return nil
}

// Raw sends a command verbatim and returns the reply
func (m *MS2000) Raw(cmd string) (string, error) {
	return m.query(cmd)
}

// Identify returns the controller's answer to WHO
func (m *MS2000) Identify() (string, error) {
	return m.query("WHO")
}

// Verify checks that the controller identifies as model
func (m *MS2000) Verify(model string) error {
	id, err := m.Identify()
	if err != nil {
		return err
	}
	if !strings.Contains(id, model) {
		return fmt.Errorf("%w: WHO returned %q", ErrDeviceMismatch, id)
	}
	return nil
}

// Status returns true if the stage is NOT moving
func (m *MS2000) Status() (bool, error) {
	resp, err := m.query("STATUS")
	if err != nil {
		return false, err
	}
	return !strings.Contains(resp, busyToken), nil
}

// Position returns the native position of each axis in axes, in X, Y, Z order.
// A reply with the wrong number of coordinates is re-queried once; the
// firmware occasionally drops or repeats a field while moving.
func (m *MS2000) Position(axes AxisSet) ([]float64, error) {
	if err := checkAxes(axes); err != nil {
		return nil, err
	}
	cmd := queryCmd("WHERE", axes, "")
	var resp string
	for attempt := 0; attempt < 2; attempt++ {
		var err error
		resp, err = m.query(cmd)
		if err != nil {
			return nil, err
		}
		coords, err := parseValues(cmd, resp)
		if err != nil {
			return nil, err
		}
		if len(coords) == axes.Count() {
			return coords, nil
		}
	}
	return nil, &ProtocolError{Cmd: cmd, Resp: resp, Msg: fmt.Sprintf("expected %d coordinates", axes.Count())}
}

func (m *MS2000) queryN(cmd string, n int) ([]float64, error) {
	resp, err := m.query(cmd)
	if err != nil {
		return nil, err
	}
	vals, err := parseValues(cmd, resp)
	if err != nil {
		return nil, err
	}
	if len(vals) != n {
		return nil, &ProtocolError{Cmd: cmd, Resp: resp, Msg: fmt.Sprintf("expected %d values", n)}
	}
	return vals, nil
}

// Limits returns the (lower, upper) native travel limits of each axis in axes
func (m *MS2000) Limits(axes AxisSet) ([][2]float64, error) {
	if err := checkAxes(axes); err != nil {
		return nil, err
	}
	n := axes.Count()
	low, err := m.queryN(queryCmd("SETLOW", axes, "?"), n)
	if err != nil {
		return nil, err
	}
	high, err := m.queryN(queryCmd("SETUP", axes, "?"), n)
	if err != nil {
		return nil, err
	}
	out := make([][2]float64, n)
	for i := range out {
		out[i] = [2]float64{low[i], high[i]}
	}
	return out, nil
}

// SetLimit changes the lower and/or upper travel limit of an axis.  Nil
// bounds are left alone.
func (m *MS2000) SetLimit(axis Axis, lower, upper *float64) error {
	if !axis.valid() {
		return fmt.Errorf("%w: axis must be X, Y or Z", ErrInvalidArgument)
	}
	if lower == nil && upper == nil {
		return fmt.Errorf("%w: must specify at least an upper or lower limit", ErrInvalidArgument)
	}
	var cmds []string
	if lower != nil {
		if err := checkFinite("lower limit", axis, *lower); err != nil {
			return err
		}
		cmds = append(cmds, setCmd("SETLOW", map[Axis]float64{axis: *lower}, -1))
	}
	if upper != nil {
		if err := checkFinite("upper limit", axis, *upper); err != nil {
			return err
		}
		cmds = append(cmds, setCmd("SETUP", map[Axis]float64{axis: *upper}, -1))
	}
	for _, cmd := range cmds {
		if _, err := m.query(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (m *MS2000) checkIdle() error {
	idle, err := m.Status()
	if err != nil {
		return err
	}
	if !idle {
		return ErrDeviceBusy
	}
	return nil
}

// Move commands a move of the given axes, in native units.  Targets beyond
// the travel limits are clamped by the firmware.  Fails with ErrDeviceBusy
// if the stage is already moving.
func (m *MS2000) Move(targets map[Axis]float64, relative bool) error {
	if err := checkValues("coordinate", targets); err != nil {
		return err
	}
	verb := "MOVE"
	if relative {
		verb = "MOVREL"
	}
	if err := m.checkIdle(); err != nil {
		return err
	}
	_, err := m.query(setCmd(verb, targets, wirePrecision))
	return err
}

// Home moves all axes to the native origin
func (m *MS2000) Home() error {
	return m.Move(map[Axis]float64{X: 0, Y: 0, Z: 0}, false)
}

// Zero defines the current position as the origin
func (m *MS2000) Zero() error {
	_, err := m.query("ZERO")
	return err
}

// GetSpeed returns the speed setting of each axis in axes, in mm/s
func (m *MS2000) GetSpeed(axes AxisSet) ([]float64, error) {
	if err := checkAxes(axes); err != nil {
		return nil, err
	}
	return m.queryN(queryCmd("SPEED", axes, "?"), axes.Count())
}

// SetSpeed sets the maximum speed of the given axes, in mm/s.  Fails with
// ErrDeviceBusy if the stage is moving.
func (m *MS2000) SetSpeed(speeds map[Axis]float64) error {
	if err := checkValues("speed", speeds); err != nil {
		return err
	}
	for a, v := range speeds {
		if v <= 0 {
			return fmt.Errorf("%w: %s speed must be positive, got %v", ErrInvalidArgument, a, v)
		}
	}
	if err := m.checkIdle(); err != nil {
		return err
	}
	_, err := m.query(setCmd("SPEED", speeds, wirePrecision))
	return err
}
