package logic

import "sync/atomic"

// Detent is the outcome of decoding one edge.
type Detent int8

const (
	DetentNone    Detent = 0
	DetentForward Detent = 1  // clockwise, volume up
	DetentReverse Detent = -1 // counter-clockwise, volume down
)

// transitionTable maps (previous<<2 | current) samples to a per-edge delta.
// Unchanged samples and two-bit jumps are invalid and map to 0.
var transitionTable = [16]int8{0, -1, 1, 0, 1, 0, 0, -1, -1, 0, 0, 1, 0, 1, -1, 0}

// detentThreshold is crossed on the fourth valid edge in one direction.
const detentThreshold = 3

// initialHistory is the history before the first edge: last sample 11.
const initialHistory = 0b0011

// Decoder turns 2-bit gray-code samples into detents.
// It is not safe for concurrent use; feed it from a single goroutine.
type Decoder struct {
	history uint8
	acc     int8
}

// NewDecoder returns a decoder in its boot state.
func NewDecoder() *Decoder {
	return &Decoder{history: initialHistory}
}

// Step consumes one sample (bit 1 = line B, bit 0 = line A) and reports a
// detent once four edges in the same direction have accumulated.
func (d *Decoder) Step(sample uint8) Detent {
	d.history = (d.history<<2)&0x0f | sample&0x03
	d.acc += transitionTable[d.history]

	switch {
	case d.acc > detentThreshold:
		d.acc = 0
		return DetentForward
	case d.acc < -detentThreshold:
		d.acc = 0
		return DetentReverse
	}
	return DetentNone
}

// Apply returns level adjusted by one detent. Forward reduces attenuation,
// reverse increases it; both clamp without wrapping.
func (det Detent) Apply(level uint8) uint8 {
	switch det {
	case DetentForward:
		if level == 0 {
			return level
		}
		return level - 1
	case DetentReverse:
		if level >= MaxAttenuation {
			return MaxAttenuation
		}
		return level + 1
	}
	return level
}

// Level is the shared attenuation cell. The encoder goroutine is its only
// writer; the scan loop is its only reader.
type Level struct {
	v atomic.Uint32
}

// NewLevel returns a cell holding initial (clamped to MaxAttenuation).
func NewLevel(initial uint8) *Level {
	l := &Level{}
	l.Write(initial)
	return l
}

// Read returns the current level.
func (l *Level) Read() uint8 {
	return uint8(l.v.Load())
}

// Write stores v, clamped to MaxAttenuation.
func (l *Level) Write(v uint8) {
	if v > MaxAttenuation {
		v = MaxAttenuation
	}
	l.v.Store(uint32(v))
}

// Encoder binds a Decoder to a Level. HandleEdge is the edge handler and
// must not be called concurrently with itself.
type Encoder struct {
	decoder *Decoder
	level   *Level

	forward atomic.Int64
	reverse atomic.Int64
}

// NewEncoder returns an encoder that adjusts level.
func NewEncoder(level *Level) *Encoder {
	return &Encoder{
		decoder: NewDecoder(),
		level:   level,
	}
}

// HandleEdge decodes sample and applies any resulting detent to the level.
func (e *Encoder) HandleEdge(sample uint8) Detent {
	det := e.decoder.Step(sample)
	switch det {
	case DetentForward:
		e.forward.Add(1)
	case DetentReverse:
		e.reverse.Add(1)
	default:
		return det
	}
	e.level.Write(det.Apply(e.level.Read()))
	return det
}

// Detents returns the number of forward and reverse detents decoded.
func (e *Encoder) Detents() (forward, reverse int64) {
	return e.forward.Load(), e.reverse.Load()
}
