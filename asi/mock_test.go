package asi

import (
	"errors"
	"testing"
	"time"
)

func waitIdle(t *testing.T, m *MS2000) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		idle, err := m.Status()
		if err != nil {
			t.Fatal(err)
		}
		if idle {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("mock never finished moving")
}

func TestMockIdentifiesAsMS2000(t *testing.T) {
	m := NewMS2000Conn(NewMock())
	defer m.Close()
	if err := m.Verify(Model); err != nil {
		t.Errorf("expected nil got %v", err)
	}
}

func TestMockRejectsUnknownCommands(t *testing.T) {
	m := NewMS2000Conn(NewMock())
	defer m.Close()
	_, err := m.Raw("FLY X=1")
	var cerr ControllerError
	if !errors.As(err, &cerr) || cerr.Code != 1 {
		t.Errorf("expected N-1 got %v", err)
	}
	_, err = m.Raw("WHERE Q")
	if !errors.As(err, &cerr) || cerr.Code != 2 {
		t.Errorf("expected N-2 got %v", err)
	}
}

func TestMockIsBusyWhileMoving(t *testing.T) {
	mock := NewMock()
	m := NewMS2000Conn(mock)
	defer m.Close()
	if err := m.Move(map[Axis]float64{Y: 20000}, false); err != nil {
		t.Fatal(err)
	}
	idle, err := m.Status()
	if err != nil {
		t.Fatal(err)
	}
	if idle {
		t.Errorf("expected busy right after a 2 mm move")
	}
	if err := m.Move(map[Axis]float64{X: 1}, false); !errors.Is(err, ErrDeviceBusy) {
		t.Errorf("expected ErrDeviceBusy got %v", err)
	}
	waitIdle(t, m)
	pos, err := m.Position(Axes(Y))
	if err != nil {
		t.Fatal(err)
	}
	if pos[0] != 20000 {
		t.Errorf("expected 20000 got %v", pos[0])
	}
}

func TestMockClampsToLimits(t *testing.T) {
	mock := NewMock()
	mock.SetPosition(X, 1095000)
	m := NewMS2000Conn(mock)
	defer m.Close()
	if err := m.Move(map[Axis]float64{X: 50000}, true); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, m)
	pos, err := m.Position(Axes(X))
	if err != nil {
		t.Fatal(err)
	}
	if pos[0] != mockTravel {
		t.Errorf("expected clamp to %v got %v", float64(mockTravel), pos[0])
	}
	cmds := mock.Commands()
	if len(cmds) < 2 || cmds[0] != "STATUS" || cmds[1] != "MOVREL X=50000" {
		t.Errorf("expected STATUS, MOVREL X=50000 first got %q", cmds)
	}
}

func TestMockSettings(t *testing.T) {
	m := NewMS2000Conn(NewMock())
	defer m.Close()
	lower := -20000.
	if err := m.SetLimit(Z, &lower, nil); err != nil {
		t.Fatal(err)
	}
	lims, err := m.Limits(Axes(Z))
	if err != nil {
		t.Fatal(err)
	}
	if lims[0] != [2]float64{-20000, mockTravel} {
		t.Errorf("expected [-20000 %v] got %v", float64(mockTravel), lims[0])
	}
	speeds, err := m.GetSpeed(AllAxes)
	if err != nil {
		t.Fatal(err)
	}
	if len(speeds) != 3 || speeds[2] != mockSpeed {
		t.Errorf("expected default speeds got %v", speeds)
	}
	if _, err := m.Raw("SPEED X=0"); err == nil {
		t.Errorf("expected zero speed to be rejected")
	}
}
