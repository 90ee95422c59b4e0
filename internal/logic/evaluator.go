package logic

import "time"

// Snapshot is the last switch word and raw level handed to the outputs.
type Snapshot struct {
	Switches    SwitchState
	Attenuation uint8
}

// Evaluator divides the scan rate and detects changes between the live panel
// state and the last transmitted snapshot.
type Evaluator struct {
	divider uint64
	retry   bool

	ticks    uint64
	last     Snapshot
	shiftDue bool
	busDue   bool

	// held is set while a failed payload waits to be resent.
	held      bool
	heldLevel uint8

	counts        Counts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewEvaluator creates an evaluator that runs every divider ticks.
// With retry set, a payload whose transmit failed stays due until it is
// sent successfully; otherwise it is dropped.
// The snapshot starts zeroed so the first evaluation always syncs the outputs.
func NewEvaluator(divider int, retry bool, startTime time.Time) *Evaluator {
	if divider < 1 {
		divider = 1
	}
	return &Evaluator{
		divider:       uint64(divider),
		retry:         retry,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Evaluate is called once per scan tick with the current switch word and
// level. It returns a transaction and true when output is due.
func (e *Evaluator) Evaluate(sw SwitchState, level uint8) (Transaction, bool) {
	tick := e.ticks
	e.ticks++
	if tick%e.divider != 0 {
		return Transaction{}, false
	}
	e.counts.Evaluations++

	tx := Transaction{Boot: e.counts.Evaluations == 1}

	if sw != e.last.Switches {
		e.last.Switches = sw
		e.shiftDue = true
		e.busDue = true
		tx.SwitchChanged = true
	}

	// A held payload is resent as is only while the switch word is unchanged.
	// A switch change sends the raw snapshot level like any other switch-only
	// change.
	candidate := e.last.Attenuation
	if e.held {
		tx.Retry = true
		if !tx.SwitchChanged {
			candidate = e.heldLevel
		}
	}

	// Dim is only applied when the level itself changed. Toggling dim alone
	// does not resend.
	if level != e.last.Attenuation {
		e.last.Attenuation = level
		e.busDue = true
		tx.LevelChanged = true
		candidate = level
		if sw.Dim() {
			candidate = DimLevel(candidate)
		}
	}

	if !e.busDue && !e.shiftDue {
		return Transaction{}, false
	}

	tx.Bus = e.busDue
	tx.Shift = e.shiftDue
	tx.Switches = e.last.Switches
	tx.Attenuation = e.last.Attenuation
	tx.Payload = [2]byte{candidate, byte(e.last.Switches)}
	return tx, true
}

// Ack records the outcome of performing tx. It must be called once for every
// transaction returned by Evaluate.
func (e *Evaluator) Ack(tx Transaction, busErr, shiftErr error) {
	if tx.Bus {
		switch {
		case busErr == nil:
			e.counts.BusTx++
			e.busDue = false
			e.held = false
		case e.retry:
			e.counts.BusErrors++
			e.held = true
			e.heldLevel = tx.Payload[0]
		default:
			e.counts.BusErrors++
			e.busDue = false
			e.held = false
		}
	}

	if tx.Shift {
		e.shiftDue = false
		if shiftErr != nil {
			e.counts.ShiftErrors++
		} else {
			e.counts.ShiftOuts++
		}
	}
}

// Pending reports whether a bus payload is waiting to be resent.
func (e *Evaluator) Pending() bool {
	return e.held
}

// Ticks returns the number of scan ticks seen.
func (e *Evaluator) Ticks() uint64 {
	return e.ticks
}

// CountsSnapshot returns a copy of the activity counters.
func (e *Evaluator) CountsSnapshot() Counts {
	return e.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (e *Evaluator) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(e.lastHeartbeat) < interval {
		return nil
	}

	e.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(e.startTime),
		Counts:    e.counts,
	}
}
