// Package console mirrors log output to a serial debug terminal.
package console

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Console writes to a serial port, terminating lines with CRLF.
type Console struct {
	port io.WriteCloser
}

// Open opens the serial device at baud, 8N1.
func Open(device string, baud int) (*Console, error) {
	c := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: time.Second,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open console %s: %w", device, err)
	}
	return New(port), nil
}

// New wraps an open port.
func New(port io.WriteCloser) *Console {
	return &Console{port: port}
}

// Write sends p with every LF expanded to CRLF. It reports len(p) on
// success so it can sit behind io.MultiWriter.
func (c *Console) Write(p []byte) (int, error) {
	out := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	if _, err := c.port.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the port.
func (c *Console) Close() error {
	return c.port.Close()
}
