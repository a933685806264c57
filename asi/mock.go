package asi

import (
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nasa-jpl/asistage/util"
)

const (
	mockSpeed  = 7.5     // mm/s, the MS2000 default
	mockTravel = 1100000 // native, +/- 110 mm
)

type mockAxis struct {
	from, to  float64 // native
	start     time.Time
	dur       time.Duration
	low, high float64 // native
	speed     float64 // mm/s
}

func (a *mockAxis) posAt(t time.Time) float64 {
	if a.dur <= 0 {
		return a.to
	}
	frac := float64(t.Sub(a.start)) / float64(a.dur)
	if frac >= 1 {
		return a.to
	}
	return a.from + (a.to-a.from)*frac
}

func (a *mockAxis) movingAt(t time.Time) bool {
	return a.dur > 0 && t.Before(a.start.Add(a.dur))
}

func (a *mockAxis) moveTo(target float64, now time.Time) {
	a.from = a.posAt(now)
	a.to = util.Clamp(target, a.low, a.high)
	a.start = now
	secs := math.Abs(a.to-a.from) / NativePerMM / a.speed
	a.dur = time.Duration(secs * float64(time.Second))
}

// Mock is a simulated MS2000.  It is an io.ReadWriteCloser that answers CR
// terminated commands the way the firmware does, so it can stand in for a
// serial port.  Moves take distance / speed to complete and are clamped to
// the travel limits.
type Mock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []byte
	out     bytes.Buffer
	closed  bool

	axes [3]mockAxis

	// ID is the answer to WHO
	ID string

	// Log records every command received
	Log []string
}

// NewMock returns a simulated controller at the origin
func NewMock() *Mock {
	m := &Mock{ID: Model}
	m.cond = sync.NewCond(&m.mu)
	for i := range m.axes {
		m.axes[i] = mockAxis{low: -mockTravel, high: mockTravel, speed: mockSpeed}
	}
	return m
}

// SetPosition places an axis at a native position without moving
func (m *Mock) SetPosition(a Axis, native float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.axes[a].from = native
	m.axes[a].to = native
	m.axes[a].dur = 0
}

// Commands returns a copy of every command received so far
func (m *Mock) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Log...)
}

// Write accepts command bytes; every complete line queues a reply
func (m *Mock) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	m.pending = append(m.pending, b...)
	for {
		idx := bytes.IndexByte(m.pending, '\r')
		if idx < 0 {
			break
		}
		line := string(m.pending[:idx])
		m.pending = m.pending[idx+1:]
		m.Log = append(m.Log, line)
		m.out.WriteString(m.handle(line, time.Now()))
		m.out.WriteByte('\r')
	}
	m.cond.Broadcast()
	return len(b), nil
}

// Read blocks until a reply is available
func (m *Mock) Read(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.out.Len() == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.out.Len() == 0 {
		return 0, io.EOF
	}
	return m.out.Read(b)
}

// Close unblocks readers; further writes fail
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
	return nil
}

func (m *Mock) busy(now time.Time) bool {
	for i := range m.axes {
		if m.axes[i].movingAt(now) {
			return true
		}
	}
	return false
}

// mockArg is one "X", "X?" or "X=1.5" field of a command
type mockArg struct {
	axis  Axis
	query bool
	value float64
	set   bool
}

func parseMockArgs(fields []string) ([]mockArg, string) {
	args := make([]mockArg, 0, len(fields))
	for _, f := range fields {
		var arg mockArg
		name := f
		switch {
		case strings.HasSuffix(f, "?"):
			arg.query = true
			name = strings.TrimSuffix(f, "?")
		case strings.Contains(f, "="):
			pieces := strings.SplitN(f, "=", 2)
			name = pieces[0]
			v, err := strconv.ParseFloat(pieces[1], 64)
			if err != nil {
				return nil, ":N-4"
			}
			arg.value, arg.set = v, true
		}
		a, err := ParseAxis(name)
		if err != nil {
			return nil, ":N-2"
		}
		arg.axis = a
		args = append(args, arg)
	}
	return args, ""
}

func (m *Mock) handle(line string, now time.Time) string {
	fields := strings.Fields(strings.ToUpper(line))
	if len(fields) == 0 {
		return ":N-1"
	}
	verb := fields[0]
	args, nak := parseMockArgs(fields[1:])
	if nak != "" {
		return nak
	}
	switch verb {
	case "WHO":
		return m.ID
	case "STATUS":
		if m.busy(now) {
			return busyToken
		}
		return "N"
	case "ZERO":
		for i := range m.axes {
			m.axes[i].from, m.axes[i].to, m.axes[i].dur = 0, 0, 0
		}
		return ":A"
	case "WHERE":
		if len(args) == 0 {
			return ":N-3"
		}
		pieces := []string{":A"}
		for _, arg := range args {
			pieces = append(pieces, util.FormatFloat(math.Round(m.axes[arg.axis].posAt(now))))
		}
		return strings.Join(pieces, " ")
	case "MOVE", "MOVREL":
		if len(args) == 0 {
			return ":N-3"
		}
		for _, arg := range args {
			if !arg.set {
				return ":N-3"
			}
			ax := &m.axes[arg.axis]
			target := arg.value
			if verb == "MOVREL" {
				target += ax.posAt(now)
			}
			ax.moveTo(target, now)
		}
		return ":A"
	case "SETLOW", "SETUP", "SPEED":
		return m.handleSetting(verb, args)
	}
	return ":N-1"
}

func (m *Mock) handleSetting(verb string, args []mockArg) string {
	if len(args) == 0 {
		return ":N-3"
	}
	field := func(a *mockAxis) *float64 {
		switch verb {
		case "SETLOW":
			return &a.low
		case "SETUP":
			return &a.high
		}
		return &a.speed
	}
	pieces := []string{":A"}
	for _, arg := range args {
		f := field(&m.axes[arg.axis])
		switch {
		case arg.query:
			pieces = append(pieces, arg.axis.String()+"="+strconv.FormatFloat(*f, 'f', 6, 64))
		case arg.set:
			if verb == "SPEED" && arg.value <= 0 {
				return ":N-4"
			}
			*f = arg.value
		default:
			return ":N-3"
		}
	}
	return strings.Join(pieces, " ")
}
