/*Package asi provides a Go interface to ASI MS2000 three axis stage controllers.

The package has two layers.  MS2000 speaks the controller's line protocol
over a comm.RemoteDevice and works in native units, tenths of a micrometer.
Motor and Stage sit on top of it and work in millimeters, enforce travel
limits, and provide blocking moves, jogging, and stopping, none of which the
firmware offers directly.

The controller only tolerates one outstanding motion command; a move or speed
change issued while it is busy fails with ErrDeviceBusy.
*/
package asi

import (
	"fmt"
	"strings"
)

const (
	// Model is the identity substring an MS2000 answers WHO with
	Model = "ASI-MS2000"

	// NativePerMM is the number of native units (tenths of a micrometer)
	// in one millimeter
	NativePerMM = 10000.

	// JogDistance is the size of the relative move, in native units, used to
	// emulate continuous motion.  1000 mm is longer than any MS2000 stage.
	JogDistance = 1000 * NativePerMM

	// HomedTolerance is how close to the origin, in mm, an axis must be to be
	// considered homed
	HomedTolerance = 1.

	// DefaultAcceleration is the value reported for acceleration, mm/s^2.
	// The controller does not expose acceleration.
	DefaultAcceleration = 1.
)

// ToNative converts millimeters to native units
func ToNative(mm float64) float64 {
	return mm * NativePerMM
}

// ToMM converts native units to millimeters
func ToMM(native float64) float64 {
	return native / NativePerMM
}

// Axis is one of the three controller axes
type Axis int

const (
	// X is the first axis
	X Axis = iota
	// Y is the second axis
	Y
	// Z is the third axis
	Z
)

var axisLetters = [...]string{"X", "Y", "Z"}

// allAxes lists every axis in wire order
var allAxes = []Axis{X, Y, Z}

func (a Axis) valid() bool {
	return a >= X && a <= Z
}

func (a Axis) String() string {
	if !a.valid() {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return axisLetters[a]
}

// ParseAxis converts "x", "Y", etc, to an Axis
func ParseAxis(s string) (Axis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return X, nil
	case "Y":
		return Y, nil
	case "Z":
		return Z, nil
	}
	return 0, fmt.Errorf("%w: axis must be X, Y or Z, got %q", ErrInvalidArgument, s)
}

// AxisSet is a selection of axes
type AxisSet uint8

// AllAxes selects X, Y, and Z
const AllAxes = AxisSet(1<<X | 1<<Y | 1<<Z)

// Axes builds an AxisSet
func Axes(axes ...Axis) AxisSet {
	var s AxisSet
	for _, a := range axes {
		if a.valid() {
			s |= 1 << a
		}
	}
	return s
}

// Has returns true if a is in the set
func (s AxisSet) Has(a Axis) bool {
	return a.valid() && s&(1<<a) != 0
}

// Members returns the axes in the set in X, Y, Z order
func (s AxisSet) Members() []Axis {
	out := make([]Axis, 0, 3)
	for _, a := range allAxes {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Count is the number of axes in the set
func (s AxisSet) Count() int {
	return len(s.Members())
}
