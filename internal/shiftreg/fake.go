package shiftreg

// FakeDriver records shifted bytes for test assertions.
type FakeDriver struct {
	// Bytes contains every byte shifted out.
	Bytes []byte

	// ShiftError, if set, is returned by ShiftOut.
	ShiftError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// ShiftOut records b.
func (f *FakeDriver) ShiftOut(b byte) error {
	if f.ShiftError != nil {
		return f.ShiftError
	}
	f.Bytes = append(f.Bytes, b)
	return nil
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}
