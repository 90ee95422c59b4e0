package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/preamp-panel/internal/bus"
	"github.com/sweeney/preamp-panel/internal/config"
	"github.com/sweeney/preamp-panel/internal/gpio"
	"github.com/sweeney/preamp-panel/internal/logic"
	"github.com/sweeney/preamp-panel/internal/mqtt"
	"github.com/sweeney/preamp-panel/internal/shiftreg"
	"github.com/sweeney/preamp-panel/internal/status"
	"github.com/sweeney/preamp-panel/internal/switches"
	"github.com/sweeney/preamp-panel/internal/tick"
)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from the loop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// repeat returns n copies of levels.
func repeat(levels gpio.Levels, n int) []gpio.Levels {
	out := make([]gpio.Levels, n)
	for i := range out {
		out[i] = levels
	}
	return out
}

// faultReader wraps a FakeReader and returns errors for a range of Read() calls.
type faultReader struct {
	inner      *gpio.FakeReader
	call       int
	faultStart int // first call index that returns error (inclusive)
	faultEnd   int // last call index that returns error (exclusive)
}

func (r *faultReader) Read() (gpio.Levels, error) {
	i := r.call
	r.call++
	if i >= r.faultStart && i < r.faultEnd {
		return 0, errors.New("gpio fault")
	}
	return r.inner.Read()
}

func (r *faultReader) Close() error { return r.inner.Close() }

// fixedEdges is an edgeCounter reporting a constant count.
type fixedEdges uint64

func (e fixedEdges) Edges() uint64 { return uint64(e) }

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// rig is a panelLoop wired to fakes.
type rig struct {
	loop    *panelLoop
	bus     *bus.FakeTransmitter
	shift   *shiftreg.FakeDriver
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	encoder *logic.Encoder
	source  *tick.Source
}

func newRig(reader gpio.Reader, retry bool, heartbeat time.Duration, clock func() time.Time) *rig {
	level := logic.NewLevel(logic.DefaultAttenuation)
	r := &rig{
		bus:     bus.NewFakeTransmitter(),
		shift:   shiftreg.NewFakeDriver(),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(testStart, status.Config{Divider: logic.DefaultDivider}),
		encoder: logic.NewEncoder(level),
		source:  tick.NewSource(tick.DefaultPeriod, tick.NewFlag()),
	}
	r.loop = &panelLoop{
		reader:     reader,
		panel:      switches.NewPanel(switches.Options{DebounceTicks: switches.DefaultDebounceTicks}),
		level:      level,
		encoder:    r.encoder,
		evaluator:  logic.NewEvaluator(logic.DefaultDivider, retry, testStart),
		bus:        r.bus,
		address:    logic.DefaultAddress,
		shift:      r.shift,
		publisher:  r.pub,
		mqttStatus: r.pub,
		mqttBuffer: r.pub,
		tracker:    r.tracker,
		source:     r.source,
		heartbeat:  heartbeat,
		now:        clock,
	}
	return r
}

// runTicks drives the loop for n ticks, calling between(i) after tick i has
// been received, then delivers signal and waits for the loop to return.
func runTicks(t *testing.T, l *panelLoop, n int, between func(i int), signal os.Signal) error {
	t.Helper()
	ticks := make(chan struct{})
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.run(ticks, sig)
	}()

	for i := 0; i < n; i++ {
		ticks <- struct{}{}
		if between != nil {
			between(i)
		}
	}
	sig <- signal

	return <-errCh
}

func frame(attenuation, word byte) bus.Frame {
	return bus.Frame{Addr: logic.DefaultAddress, Data: []byte{attenuation, word}}
}

func assertFrames(t *testing.T, got []bus.Frame, want ...bus.Frame) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("frames: got %d %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i].Addr != want[i].Addr || !bytes.Equal(got[i].Data, want[i].Data) {
			t.Errorf("frame %d: got addr=0x%02x %v, want addr=0x%02x %v",
				i, got[i].Addr, got[i].Data, want[i].Addr, want[i].Data)
		}
	}
}

// turn feeds n detents into the encoder. Forward lowers the level.
func turn(e *logic.Encoder, forward bool, n int) {
	samples := []uint8{0b01, 0b00, 0b10, 0b11}
	if !forward {
		samples = []uint8{0b10, 0b00, 0b01, 0b11}
	}
	for i := 0; i < n; i++ {
		for _, s := range samples {
			e.HandleEdge(s)
		}
	}
}

// --- panelLoop tests ---

func TestPanelLoopBootSync(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(0, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))

	if err := runTicks(t, r.loop, 1, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	assertFrames(t, r.bus.Frames, frame(127, 0x90))
	if len(r.shift.Bytes) != 1 || r.shift.Bytes[0] != 0x90 {
		t.Errorf("shift: got %v, want [0x90]", r.shift.Bytes)
	}
	if len(r.pub.Events) != 1 || r.pub.Events[0].Type != logic.EventSync {
		t.Fatalf("events: %+v", r.pub.Events)
	}
}

func TestPanelLoopNoChangeNoTransaction(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(0, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))

	// Three evaluations with nothing changing after the boot sync.
	if err := runTicks(t, r.loop, 3*logic.DefaultDivider, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	if len(r.bus.Frames) != 1 {
		t.Errorf("expected only the boot frame, got %d", len(r.bus.Frames))
	}
	if len(r.shift.Bytes) != 1 {
		t.Errorf("expected only the boot shift-out, got %d", len(r.shift.Bytes))
	}
	if len(r.pub.Events) != 1 {
		t.Errorf("expected 1 panel event, got %d", len(r.pub.Events))
	}
}

func TestPanelLoopInput2Pressed(t *testing.T) {
	// Input 2 held from boot. It is accepted by the debouncer on tick 3
	// and transmitted on the next evaluation, tick 16.
	r := newRig(gpio.NewFakeReader(repeat(1<<switches.InputInput2, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))

	if err := runTicks(t, r.loop, logic.DefaultDivider+1, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	assertFrames(t, r.bus.Frames, frame(127, 0x90), frame(127, 0x50))
	want := []byte{0x90, 0x50}
	if !bytes.Equal(r.shift.Bytes, want) {
		t.Errorf("shift: got %v, want %v", r.shift.Bytes, want)
	}
	if len(r.pub.Events) != 2 || r.pub.Events[1].Type != logic.EventSwitch {
		t.Fatalf("events: %+v", r.pub.Events)
	}
	if r.pub.Events[1].Switches.Input() != 2 {
		t.Errorf("input: got %d, want 2", r.pub.Events[1].Switches.Input())
	}
}

func TestPanelLoopEncoderLevelChange(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(0, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))

	between := func(i int) {
		if i == 4 {
			turn(r.encoder, true, 27) // 127 -> 100
		}
	}
	if err := runTicks(t, r.loop, logic.DefaultDivider+1, between, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	assertFrames(t, r.bus.Frames, frame(127, 0x90), frame(100, 0x90))
	if len(r.shift.Bytes) != 1 {
		t.Errorf("a level change must not shift out, got %v", r.shift.Bytes)
	}
	if r.pub.Events[1].Type != logic.EventLevel {
		t.Errorf("type: got %s, want LEVEL", r.pub.Events[1].Type)
	}
}

func TestPanelLoopDimAppliedOnLevelChange(t *testing.T) {
	// Dim is pressed from boot; momentary mode toggles it on at tick 3.
	r := newRig(gpio.NewFakeReader(repeat(1<<switches.InputDim, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))

	between := func(i int) {
		if i == 2*logic.DefaultDivider+4 {
			turn(r.encoder, true, 77) // 127 -> 50
		}
	}
	if err := runTicks(t, r.loop, 3*logic.DefaultDivider+1, between, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	// Tick 16 sends the dim bit with the raw level: dim alone does not
	// adjust the level. Tick 48 sends the dimmed level 50+32.
	assertFrames(t, r.bus.Frames,
		frame(127, 0x90),
		frame(127, 0x91),
		frame(82, 0x91),
	)
	if r.pub.Events[2].Attenuation != 50 || r.pub.Events[2].Transmitted != 82 {
		t.Errorf("levels: raw=%d transmitted=%d", r.pub.Events[2].Attenuation, r.pub.Events[2].Transmitted)
	}
}

func TestPanelLoopBusFailureRetried(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(0, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))
	r.bus.TransmitError = errors.New("no ack")
	r.bus.FailNext = 1

	if err := runTicks(t, r.loop, logic.DefaultDivider+1, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	if r.bus.Attempts != 2 {
		t.Errorf("attempts: got %d, want 2", r.bus.Attempts)
	}
	assertFrames(t, r.bus.Frames, frame(127, 0x90))
	if len(r.shift.Bytes) != 1 {
		t.Errorf("shift-out must not repeat on bus retry, got %v", r.shift.Bytes)
	}

	if len(r.pub.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(r.pub.Events))
	}
	if r.pub.Events[0].BusSent || r.pub.Events[0].BusError != "no ack" {
		t.Errorf("first event: %+v", r.pub.Events[0])
	}
	if r.pub.Events[1].Type != logic.EventRetry || !r.pub.Events[1].BusSent {
		t.Errorf("retry event: %+v", r.pub.Events[1])
	}

	c := r.tracker.Snapshot().Counts
	if c.BusErrors != 1 || c.BusTx != 1 {
		t.Errorf("counts: %+v", c)
	}
}

func TestPanelLoopBusFailureDroppedWithoutRetry(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(0, 1)), false, 0, fakeClock(testStart, tick.DefaultPeriod))
	r.bus.TransmitError = errors.New("no ack")
	r.bus.FailNext = 1

	if err := runTicks(t, r.loop, 2*logic.DefaultDivider+1, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	if r.bus.Attempts != 1 {
		t.Errorf("attempts: got %d, want 1", r.bus.Attempts)
	}
	if len(r.bus.Frames) != 0 {
		t.Errorf("frames: got %v", r.bus.Frames)
	}
	if r.tracker.Snapshot().Panel.Synced {
		t.Error("panel should not report synced after a failed transmit")
	}
}

func TestPanelLoopShiftErrorDoesNotStopLoop(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(1<<switches.InputOutput3, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))
	r.shift.ShiftError = errors.New("line gone")

	if err := runTicks(t, r.loop, logic.DefaultDivider+1, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	assertFrames(t, r.bus.Frames, frame(127, 0x90), frame(127, 0x84))
	if c := r.tracker.Snapshot().Counts; c.ShiftErrors != 2 || c.ShiftOuts != 0 {
		t.Errorf("counts: %+v", c)
	}
}

func TestPanelLoopGPIOReadError(t *testing.T) {
	// Faults on every read: the loop keeps evaluating and still syncs.
	reader := &faultReader{inner: gpio.NewFakeReader(repeat(0, 1)), faultStart: 0, faultEnd: 4}
	r := newRig(reader, true, 0, fakeClock(testStart, tick.DefaultPeriod))

	if err := runTicks(t, r.loop, 4, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	assertFrames(t, r.bus.Frames, frame(127, 0x90))
	snap := r.tracker.Snapshot()
	if snap.Activity.GPIOErrors != 4 {
		t.Errorf("GPIOErrors: got %d, want 4", snap.Activity.GPIOErrors)
	}

	found := false
	for _, se := range r.pub.SystemEvents {
		if se.Event == "SHUTDOWN" {
			found = true
		}
	}
	if !found {
		t.Error("expected SHUTDOWN system event after GPIO errors")
	}
}

func TestPanelLoopGPIOErrorRecovery(t *testing.T) {
	// Input 1 press interrupted by faults still debounces once reads recover.
	inner := gpio.NewFakeReader(repeat(1<<switches.InputInput3, 1))
	reader := &faultReader{inner: inner, faultStart: 1, faultEnd: 3}
	r := newRig(reader, true, 0, fakeClock(testStart, tick.DefaultPeriod))

	if err := runTicks(t, r.loop, logic.DefaultDivider+1, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	assertFrames(t, r.bus.Frames, frame(127, 0x90), frame(127, 0x30))
}

func TestPanelLoopPublishError(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(0, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))
	r.pub.PublishError = errors.New("broker down")

	if err := runTicks(t, r.loop, 1, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	// Outputs are still driven.
	assertFrames(t, r.bus.Frames, frame(127, 0x90))
	if len(r.pub.SystemEvents) != 1 {
		t.Errorf("expected SHUTDOWN despite publish errors, got %d system events", len(r.pub.SystemEvents))
	}
}

func TestPanelLoopHeartbeat(t *testing.T) {
	// 5-minute clock step: the tick at +15m is the first at or past the
	// 15-minute interval.
	r := newRig(gpio.NewFakeReader(repeat(0, 1)), true, 15*time.Minute, fakeClock(testStart, 5*time.Minute))

	if err := runTicks(t, r.loop, 4, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	var heartbeats []mqtt.SystemEvent
	for _, se := range r.pub.SystemEvents {
		if se.Event == "HEARTBEAT" {
			heartbeats = append(heartbeats, se)
		}
	}
	if len(heartbeats) != 1 {
		t.Fatalf("expected 1 heartbeat, got %d", len(heartbeats))
	}
	if !heartbeats[0].Timestamp.Equal(testStart.Add(15 * time.Minute)) {
		t.Errorf("heartbeat timestamp: got %v", heartbeats[0].Timestamp)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(heartbeats[0].RawPayload, &parsed); err != nil {
		t.Fatalf("heartbeat payload: %v", err)
	}
	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("event: got %q", parsed.Status.Event)
	}
	if parsed.Status.Counts.BusTx != 1 {
		t.Errorf("bus_tx: got %d, want 1", parsed.Status.Counts.BusTx)
	}
}

func TestPanelLoopHeartbeatDisabled(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(0, 1)), true, 0, fakeClock(testStart, time.Hour))

	if err := runTicks(t, r.loop, 5, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	for _, se := range r.pub.SystemEvents {
		if se.Event == "HEARTBEAT" {
			t.Fatal("heartbeat published while disabled")
		}
	}
}

func TestPanelLoopShutdownSIGINT(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(0, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))

	if err := runTicks(t, r.loop, 0, nil, syscall.SIGINT); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	if len(r.pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(r.pub.SystemEvents))
	}
	se := r.pub.SystemEvents[0]
	if se.Event != "SHUTDOWN" || se.Reason != "SIGINT" || !se.Retained {
		t.Errorf("shutdown event: %+v", se)
	}
	if !strings.Contains(string(se.RawPayload), `"reason":"SIGINT"`) {
		t.Errorf("payload: %s", se.RawPayload)
	}
}

func TestPanelLoopShutdownSIGTERM(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(0, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))
	r.pub.Connected = true

	if err := runTicks(t, r.loop, 2, nil, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	se := r.pub.SystemEvents[len(r.pub.SystemEvents)-1]
	if se.Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", se.Reason)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(se.RawPayload, &parsed); err != nil {
		t.Fatal(err)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("shutdown snapshot should report MQTT connected")
	}
	if parsed.Status.Counts.Ticks != 2 {
		t.Errorf("ticks: got %d, want 2", parsed.Status.Counts.Ticks)
	}
}

func TestPanelLoopTrackerReflectsPanel(t *testing.T) {
	r := newRig(gpio.NewFakeReader(repeat(1<<switches.InputOutput2, 1)), true, 0, fakeClock(testStart, tick.DefaultPeriod))
	r.source.Fire()
	r.source.Fire() // second tick while the first is pending is dropped
	r.pub.Held = 3
	r.loop.edges = fixedEdges(40)

	between := func(i int) {
		if i == 1 {
			turn(r.encoder, false, 2) // already at the ceiling
			turn(r.encoder, true, 7)  // 127 -> 120
		}
	}
	if err := runTicks(t, r.loop, logic.DefaultDivider+1, between, syscall.SIGTERM); err != nil {
		t.Fatalf("panel loop returned error: %v", err)
	}

	snap := r.tracker.Snapshot()
	if snap.Panel.Switches != 0b10001000 {
		t.Errorf("switches: got %s, want 10001000", snap.Panel.Switches)
	}
	if snap.Panel.Attenuation != 120 || snap.Panel.Transmitted != 120 {
		t.Errorf("levels: %+v", snap.Panel)
	}
	if !snap.Panel.Synced || snap.Panel.Pending {
		t.Errorf("sync flags: %+v", snap.Panel)
	}
	if snap.Activity.ForwardDetents != 7 || snap.Activity.ReverseDetents != 2 {
		t.Errorf("detents: %+v", snap.Activity)
	}
	if snap.Activity.RaisedTicks != 1 || snap.Activity.DroppedTicks != 1 {
		t.Errorf("source ticks: raised %d dropped %d, want 1 and 1", snap.Activity.RaisedTicks, snap.Activity.DroppedTicks)
	}
	if snap.Activity.EncoderEdges != 40 {
		t.Errorf("encoder edges: got %d, want 40", snap.Activity.EncoderEdges)
	}
	if snap.MQTTBuffered != 3 {
		t.Errorf("mqtt buffered: got %d, want 3", snap.MQTTBuffered)
	}
}

// --- helpers ---

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	applyOverrides(cfg, map[string]bool{"broker": true, "http": true}, "tcp://10.0.0.1:1883", "", time.Minute)

	if cfg.MQTT.Broker != "tcp://10.0.0.1:1883" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.HTTP.Addr != "" {
		t.Errorf("http should be disabled, got %q", cfg.HTTP.Addr)
	}
	if cfg.MQTT.Heartbeat != 15*time.Minute {
		t.Errorf("heartbeat was not set and should keep config, got %v", cfg.MQTT.Heartbeat)
	}
}

func TestStatusConfig(t *testing.T) {
	cfg := config.Default()
	sc := statusConfig(cfg, "ws://h:9001")

	if sc.TickUs != 2304 {
		t.Errorf("TickUs: got %d, want 2304", sc.TickUs)
	}
	if sc.BusAddress != 0x10 || sc.Divider != 16 {
		t.Errorf("bus/divider: %+v", sc)
	}
	if sc.HeartbeatMs != 900000 {
		t.Errorf("HeartbeatMs: got %d", sc.HeartbeatMs)
	}
	if sc.WSBroker != "ws://h:9001" {
		t.Errorf("WSBroker: got %q", sc.WSBroker)
	}
}

func TestFormatInputs(t *testing.T) {
	out := formatInputs(1<<switches.InputInput2 | 1<<switches.InputDim)

	for _, want := range []string{
		"input 1:  open\n",
		"input 2:  closed\n",
		"output 3: open\n",
		"dim:      closed\n",
		"boot word: 10010000 (attenuation 127)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResolveWSBroker(t *testing.T) {
	tests := []struct {
		ws, broker, want string
	}{
		{"=broker", "tcp://192.168.1.200:1883", "ws://192.168.1.200:9001"},
		{"off", "tcp://192.168.1.200:1883", ""},
		{"ws://other:8080", "tcp://192.168.1.200:1883", "ws://other:8080"},
		{"=broker", "://bad", ""},
	}
	for _, tt := range tests {
		if got := resolveWSBroker(tt.ws, tt.broker); got != tt.want {
			t.Errorf("resolveWSBroker(%q, %q): got %q, want %q", tt.ws, tt.broker, got, tt.want)
		}
	}
}
