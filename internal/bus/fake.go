package bus

// Frame is one recorded transmission.
type Frame struct {
	Addr uint8
	Data []byte
}

// FakeTransmitter records transmissions for test assertions.
type FakeTransmitter struct {
	// Frames contains every successful transmission.
	Frames []Frame

	// Attempts counts every call to Transmit, including failures.
	Attempts int

	// TransmitError, if set, is returned by Transmit.
	TransmitError error

	// FailNext makes the next N calls fail with TransmitError.
	// Zero with TransmitError set fails every call.
	FailNext int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeTransmitter creates a FakeTransmitter for testing.
func NewFakeTransmitter() *FakeTransmitter {
	return &FakeTransmitter{}
}

// Transmit records the frame or returns the scripted error.
func (f *FakeTransmitter) Transmit(addr uint8, data []byte) error {
	f.Attempts++
	if f.TransmitError != nil {
		if f.FailNext == 0 {
			return f.TransmitError
		}
		f.FailNext--
		if f.FailNext == 0 {
			err := f.TransmitError
			f.TransmitError = nil
			return err
		}
		return f.TransmitError
	}

	f.Frames = append(f.Frames, Frame{Addr: addr, Data: append([]byte(nil), data...)})
	return nil
}

// Close marks the transmitter as closed.
func (f *FakeTransmitter) Close() error {
	f.Closed = true
	return nil
}
