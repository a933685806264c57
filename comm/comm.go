/*Package comm provides an embeddable type for line-oriented communication with lab hardware.

Most usages of this package will boil down to:
	1.  embed *RemoteDevice in a type that represents your hardware.
	2.  pass the right Terminators to NewRemoteDevice.  A nil pointer gives
		carriage returns in both directions, which is the default.
	3.  pass a serial.Config when the device is on RS232.
	4.  write methods on top of SendRecv, holding the lock for the whole
		exchange when the device only tolerates one command in flight.

A minimal example is provided below for a temperature sensor that responds to
"RD?" with the current temperature

	type MySensor struct {
		*comm.RemoteDevice
	}

	func (ms *MySensor) ReadTemp() (float64, error) {
		if err := ms.Open(); err != nil {
			return 0, err
		}
		ms.Lock()
		defer ms.Unlock()
		resp, err := ms.SendRecv([]byte("RD?"))
		if err != nil {
			return 0, err
		}
		return strconv.ParseFloat(string(resp), 64)
	}
*/
package comm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

var (
	// ErrNoSerialConf is generated when IsSerial=true and no serial.Config was given
	ErrNoSerialConf = errors.New("device is serial but has no serial config")

	// ErrNotConnected is generated when .Conn is nil and Send or Recv is called.
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

// Terminators holds the receipt and transmission termination bytes
type Terminators struct {
	Rx byte
	Tx byte
}

// CR is carriage return termination in both directions
var CR = Terminators{Rx: '\r', Tx: '\r'}

/*RemoteDevice has an address and a connection to it.

The embedded mutex is not used by Send or Recv; types that embed the device
lock it around a complete SendRecv so that exchanges never interleave.
*/
type RemoteDevice struct {
	sync.Mutex

	// Addr is a serial port (/dev/ttyUSB0, COM3) or a host:port
	Addr string

	// IsSerial selects serial.OpenPort over TCP
	IsSerial bool

	// Conn is the live connection, nil when closed
	Conn io.ReadWriteCloser

	// Timeout bounds the connect and I/O on TCP connections.  Serial
	// connections use serial.Config.ReadTimeout instead.
	Timeout time.Duration

	terms  Terminators
	serCfg *serial.Config
	rdr    *bufio.Reader
}

// NewRemoteDevice creates a new RemoteDevice instance.  terms may be nil, in which case
// CR is used.  serCfg is only consulted when serial is true.
func NewRemoteDevice(addr string, serial bool, terms *Terminators, serCfg *serial.Config) *RemoteDevice {
	t := CR
	if terms != nil {
		t = *terms
	}
	return &RemoteDevice{
		Addr:     addr,
		IsSerial: serial,
		Timeout:  3 * time.Second,
		terms:    t,
		serCfg:   serCfg}
}

// NewAttachedDevice creates a RemoteDevice around a connection that is
// already open, such as a simulated controller or a probed port
func NewAttachedDevice(conn io.ReadWriteCloser, terms *Terminators) *RemoteDevice {
	rd := NewRemoteDevice("", false, terms, nil)
	rd.attach(conn)
	return rd
}

func (rd *RemoteDevice) attach(conn io.ReadWriteCloser) {
	rd.Conn = conn
	rd.rdr = bufio.NewReader(conn)
}

// Open the connection, setting the Conn variable.  Open is a no-op if the
// device is already connected.
func (rd *RemoteDevice) Open() error {
	if rd.Conn != nil {
		return nil
	}
	// serial adapters sometimes take a moment to enumerate after a reset,
	// retry until the port shows up or the budget is spent
	op := func() error {
		err := rd.open()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNoSerialConf) || strings.Contains(strings.ToLower(err.Error()), "refused") {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err != nil {
		return fmt.Errorf("opening %s: %w", rd.Addr, err)
	}
	return nil
}

func (rd *RemoteDevice) open() error {
	var (
		err  error
		conn io.ReadWriteCloser
	)
	if rd.IsSerial {
		if rd.serCfg == nil {
			return ErrNoSerialConf
		}
		conn, err = serial.OpenPort(rd.serCfg)
	} else {
		conn, err = TCPSetup(rd.Addr, rd.Timeout)
	}
	if err != nil {
		return err
	}
	rd.attach(conn)
	return nil
}

// Close the connection, nil-ing the Conn variable.  Closing a closed device
// returns nil.
func (rd *RemoteDevice) Close() error {
	if rd.Conn == nil {
		return nil
	}
	err := rd.Conn.Close()
	rd.Conn = nil
	rd.rdr = nil
	return err
}

// Send writes data to the remote with the Tx terminator appended
func (rd *RemoteDevice) Send(b []byte) error {
	if rd.Conn == nil {
		return ErrNotConnected
	}
	rd.refreshDeadline()
	msg := make([]byte, 0, len(b)+1)
	msg = append(msg, b...)
	msg = append(msg, rd.terms.Tx)
	_, err := rd.Conn.Write(msg)
	return err
}

// Recv recieves data from the remote and strips the Rx terminator
func (rd *RemoteDevice) Recv() ([]byte, error) {
	if rd.Conn == nil {
		return nil, ErrNotConnected
	}
	rd.refreshDeadline()
	term := rd.terms.Rx
	buf, err := rd.rdr.ReadBytes(term)
	if err != nil {
		if len(buf) > 0 && err == io.EOF {
			return buf, ErrTerminatorNotFound
		}
		return nil, err
	}
	return bytes.TrimSuffix(buf, []byte{term}), nil
}

// refreshDeadline pushes the I/O deadline of network connections out by
// Timeout; the serial driver enforces its own read timeout
func (rd *RemoteDevice) refreshDeadline() {
	if c, ok := rd.Conn.(net.Conn); ok && rd.Timeout > 0 {
		c.SetDeadline(time.Now().Add(rd.Timeout))
	}
}

// SendRecv sends a buffer after appending the Tx terminator,
// then returns the response with the Rx terminator stripped
func (rd *RemoteDevice) SendRecv(b []byte) ([]byte, error) {
	err := rd.Send(b)
	if err != nil {
		return nil, err
	}
	return rd.Recv()
}

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}
