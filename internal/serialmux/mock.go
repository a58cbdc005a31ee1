package serialmux

import (
	"bytes"
	"errors"
	"strings"
	"sync"
)

// ErrPortClosed is returned by TestableSerialPort after Close.
var ErrPortClosed = errors.New("serial port closed")

// TestableSerialPort implements SerialPorter for tests. Reads block until a
// line is queued with AddLine or the port is closed; writes are captured so
// tests can assert on the commands a component sent.
type TestableSerialPort struct {
	mu sync.Mutex

	readBuffer  bytes.Buffer
	writeBuffer bytes.Buffer

	// WriteError is returned by every Write while set.
	WriteError error
	// CloseError is returned by Close if set.
	CloseError error

	closed   bool
	readCond *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort.
func NewTestableSerialPort() *TestableSerialPort {
	p := &TestableSerialPort{}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

// Read blocks until data is available or the port is closed.
func (p *TestableSerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for !p.closed && p.readBuffer.Len() == 0 {
		p.readCond.Wait()
	}
	if p.readBuffer.Len() == 0 {
		return 0, ErrPortClosed
	}
	return p.readBuffer.Read(b)
}

func (p *TestableSerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	if p.WriteError != nil {
		return 0, p.WriteError
	}
	return p.writeBuffer.Write(b)
}

// Close marks the port closed and wakes any blocked reader.
func (p *TestableSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.readCond.Broadcast()
	return p.CloseError
}

// SetWriteError makes subsequent writes fail with err; nil clears it.
func (p *TestableSerialPort) SetWriteError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.WriteError = err
}

// AddLine queues a newline terminated line for the reader.
func (p *TestableSerialPort) AddLine(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.readBuffer.WriteString(strings.TrimSuffix(line, "\n") + "\n")
	p.readCond.Broadcast()
}

// Commands returns every newline terminated command written so far.
func (p *TestableSerialPort) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	written := strings.TrimSuffix(p.writeBuffer.String(), "\n")
	if written == "" {
		return nil
	}
	return strings.Split(written, "\n")
}

// IsClosed reports whether Close has been called.
func (p *TestableSerialPort) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
