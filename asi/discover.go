package asi

import (
	"io"
	"log"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/tarm/serial"
)

// DialFunc opens a connection to addr
type DialFunc func(addr string) (io.ReadWriteCloser, error)

// SerialDial opens addr as a serial port configured for the MS2000
func SerialDial(addr string) (io.ReadWriteCloser, error) {
	return serial.OpenPort(makeSerConf(addr))
}

// CandidatePorts lists the serial ports on this machine that could hold a controller
func CandidatePorts() []string {
	if runtime.GOOS == "windows" {
		ports := make([]string, 0, 16)
		for i := 1; i <= 16; i++ {
			ports = append(ports, "COM"+strconv.Itoa(i))
		}
		return ports
	}
	var ports []string
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*", "/dev/tty.usbserial*", "/dev/cu.usbserial*"} {
		matches, _ := filepath.Glob(pattern)
		ports = append(ports, matches...)
	}
	return ports
}

// Discover returns the first of addrs whose device identifies as an MS2000
func Discover(addrs []string, dial DialFunc) (string, error) {
	for _, addr := range addrs {
		conn, err := dial(addr)
		if err != nil {
			continue
		}
		m := NewMS2000Conn(conn)
		err = m.Verify(Model)
		m.Close()
		if err == nil {
			log.Printf("found %s at %s", Model, addr)
			return addr, nil
		}
	}
	return "", ErrDeviceNotFound
}

// Open connects to the controller at addr and verifies its identity.  If
// addr is empty, the serial ports from CandidatePorts are probed.
func Open(addr string, serial bool) (*MS2000, error) {
	if addr == "" {
		found, err := Discover(CandidatePorts(), SerialDial)
		if err != nil {
			return nil, err
		}
		addr, serial = found, true
	}
	m := NewMS2000(addr, serial)
	if err := m.RemoteDevice.Open(); err != nil {
		return nil, &CommunicationError{Cmd: "open", Err: err}
	}
	if err := m.Verify(Model); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}
