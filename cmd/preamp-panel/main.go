// Command preamp-panel runs the preamplifier front panel: it scans the
// switches and volume encoder and drives the attenuator bus and the
// indicator/relay shift register.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/preamp-panel/internal/bus"
	"github.com/sweeney/preamp-panel/internal/config"
	"github.com/sweeney/preamp-panel/internal/console"
	"github.com/sweeney/preamp-panel/internal/gpio"
	"github.com/sweeney/preamp-panel/internal/logic"
	"github.com/sweeney/preamp-panel/internal/mqtt"
	"github.com/sweeney/preamp-panel/internal/shiftreg"
	"github.com/sweeney/preamp-panel/internal/status"
	"github.com/sweeney/preamp-panel/internal/switches"
	"github.com/sweeney/preamp-panel/internal/tick"
	"github.com/sweeney/preamp-panel/internal/web"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "YAML configuration file")
	printState := flag.Bool("print-state", false, "Print current switch inputs and exit")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config, empty to disable)")
	heartbeat := flag.Duration("heartbeat", 0, "Heartbeat interval (overrides config, 0 to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from the broker, "off" disables)`)

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyOverrides(cfg, set, *broker, *httpAddr, *heartbeat)

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	ws := resolveWSBroker(*wsBroker, cfg.MQTT.Broker)
	if err := run(cfg, *printState, ws); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyOverrides copies explicitly set flags over the loaded config.
func applyOverrides(cfg *config.Config, set map[string]bool, broker, httpAddr string, heartbeat time.Duration) {
	if set["broker"] {
		cfg.MQTT.Broker = broker
	}
	if set["http"] {
		cfg.HTTP.Addr = httpAddr
	}
	if set["heartbeat"] {
		cfg.MQTT.Heartbeat = heartbeat
	}
}

func run(cfg *config.Config, printState bool, wsBroker string) error {
	// Initialize switch inputs
	gpioReader, err := gpio.NewRealReader(cfg.GPIO.Chip, cfg.GPIO.Switches)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	// Print state mode
	if printState {
		levels, err := gpioReader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Print(formatInputs(levels))
		return nil
	}

	// Mirror the log to the debug console before anything else is logged
	if cfg.Console.Device != "" {
		con, err := console.Open(cfg.Console.Device, cfg.Console.Baud)
		if err != nil {
			return fmt.Errorf("init console: %w", err)
		}
		log.SetOutput(io.MultiWriter(os.Stderr, con))
		defer func() {
			log.SetOutput(os.Stderr)
			con.Close()
		}()
	}

	// Initialize outputs
	transmitter, err := bus.OpenI2C(cfg.Bus.Device)
	if err != nil {
		return fmt.Errorf("init bus: %w", err)
	}
	defer transmitter.Close()

	shifter, err := openShiftRegister(cfg)
	if err != nil {
		return fmt.Errorf("init shift register: %w", err)
	}
	defer shifter.Close()

	// Encoder edges update the level from gpiocdev's event goroutine
	level := logic.NewLevel(logic.DefaultAttenuation)
	encoder := logic.NewEncoder(level)
	watcher, err := gpio.NewEncoderWatcher(cfg.GPIO.Chip, cfg.GPIO.EncoderA, cfg.GPIO.EncoderB, cfg.GPIO.EncoderDebounce,
		func(sample uint8) { encoder.HandleEdge(sample) })
	if err != nil {
		return fmt.Errorf("init encoder: %w", err)
	}
	defer watcher.Close()

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	startTime := time.Now()
	tracker := status.NewTracker(startTime, statusConfig(cfg, wsBroker))

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	// Start the scan tick
	due := tick.NewFlag()
	source := tick.NewSource(cfg.Scan.Period, due)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go source.Run(ctx)

	log.Printf("started: tick=%v divider=%d bus=%s@0x%02x shift=%s broker=%s heartbeat=%v",
		source.Period(), cfg.Scan.Divider, cfg.Bus.Device, cfg.Bus.Address, cfg.Shift.Driver, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &panelLoop{
		reader: gpioReader,
		panel: switches.NewPanel(switches.Options{
			DebounceTicks: cfg.GPIO.DebounceTicks,
			MonoMode:      cfg.MonoMode(),
			DimMode:       cfg.DimMode(),
		}),
		level:      level,
		encoder:    encoder,
		evaluator:  logic.NewEvaluator(cfg.Scan.Divider, cfg.Bus.RetryFailed, startTime),
		bus:        transmitter,
		address:    cfg.Bus.Address,
		shift:      shifter,
		publisher:  publisher,
		mqttStatus: publisher,
		mqttBuffer: publisher,
		tracker:    tracker,
		source:     source,
		edges:      watcher,
		heartbeat:  cfg.MQTT.Heartbeat,
		now:        time.Now,
	}
	return l.run(due.C(), sigCh)
}

func openShiftRegister(cfg *config.Config) (*shiftreg.Register, error) {
	s := cfg.Shift
	if s.Driver == config.DriverGovattu {
		pins, err := shiftreg.NewVattuPins(uint8(s.Data), uint8(s.Clock), uint8(s.Latch))
		if err != nil {
			return nil, err
		}
		return shiftreg.New(pins), nil
	}

	pins, err := shiftreg.NewLinePins(cfg.GPIO.Chip, s.Data, s.Clock, s.Latch)
	if err != nil {
		return nil, err
	}
	return shiftreg.New(pins), nil
}

func statusConfig(cfg *config.Config, wsBroker string) status.Config {
	return status.Config{
		TickUs:        cfg.Scan.Period.Microseconds(),
		Divider:       cfg.Scan.Divider,
		DebounceTicks: cfg.GPIO.DebounceTicks,
		BusDevice:     cfg.Bus.Device,
		BusAddress:    cfg.Bus.Address,
		ShiftDriver:   cfg.Shift.Driver,
		HeartbeatMs:   cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP.Addr,
		WSBroker:      wsBroker,
	}
}

// edgeCounter reports encoder edges seen by the watcher.
type edgeCounter interface {
	Edges() uint64
}

// panelLoop is the scan loop. It owns the switch word, the evaluator and the
// output collaborators; only level and encoder are touched by another goroutine.
type panelLoop struct {
	reader    gpio.Reader
	panel     *switches.Panel
	level     *logic.Level
	encoder   *logic.Encoder
	evaluator *logic.Evaluator
	bus       bus.Transmitter
	address   uint8
	shift     shiftreg.Driver

	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // optional
	mqttBuffer mqtt.BufferStatus     // optional
	tracker    *status.Tracker       // optional
	source     *tick.Source          // optional, for tick counts
	edges      edgeCounter           // optional

	heartbeat time.Duration
	now       func() time.Time

	transmitted uint8
	synced      bool
	gpioErrors  int
}

// run scans once per receive on due until a signal arrives.
func (l *panelLoop) run(due <-chan struct{}, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case <-due:
			l.scan()
		}
	}
}

func (l *panelLoop) scan() {
	t := l.now()

	raw, err := l.reader.Read()
	if err != nil {
		l.gpioErrors++
		log.Printf("gpio read error: %v", err)
	} else {
		l.panel.Scan(raw)
	}

	if tx, due := l.evaluator.Evaluate(l.panel.State(), l.level.Read()); due {
		l.perform(t, tx)
	}

	l.updateTracker()

	if hbData := l.evaluator.CheckHeartbeat(t, l.heartbeat); hbData != nil {
		c := hbData.Counts
		log.Printf("heartbeat: uptime=%v evaluations=%d bus_tx=%d bus_errors=%d shift_outs=%d",
			hbData.Uptime, c.Evaluations, c.BusTx, c.BusErrors, c.ShiftOuts)

		hbEvent := mqtt.SystemEvent{
			Timestamp: hbData.Timestamp,
			Event:     "HEARTBEAT",
		}
		if l.tracker != nil {
			hbEvent.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
		}
		if err := l.publisher.PublishSystem(hbEvent); err != nil {
			log.Printf("heartbeat publish error: %v", err)
		}
	}
}

// perform issues tx: the bus payload first, then the shift-out.
func (l *panelLoop) perform(t time.Time, tx logic.Transaction) {
	var busErr, shiftErr error

	if tx.Bus {
		busErr = l.bus.Transmit(l.address, tx.Payload[:])
		if busErr != nil {
			log.Printf("bus transmit error: %v", busErr)
		} else {
			l.transmitted = tx.Transmitted()
			l.synced = true
		}
	}

	if tx.Shift {
		shiftErr = l.shift.ShiftOut(byte(tx.Switches))
		if shiftErr != nil {
			log.Printf("shift-out error: %v", shiftErr)
		}
	}

	l.evaluator.Ack(tx, busErr, shiftErr)

	event := logic.NewEvent(t, tx, busErr)
	log.Printf("event: %s (switches=%s attenuation=%d transmitted=%d)",
		event.Type, event.Switches, event.Attenuation, event.Transmitted)
	if err := l.publisher.Publish(event); err != nil {
		log.Printf("publish error: %v", err)
	}
}

func (l *panelLoop) updateTracker() {
	if l.tracker == nil {
		return
	}

	l.tracker.Update(status.Panel{
		Switches:    l.panel.State(),
		Attenuation: l.level.Read(),
		Transmitted: l.transmitted,
		Synced:      l.synced,
		Pending:     l.evaluator.Pending(),
	}, l.evaluator.CountsSnapshot())

	a := status.Activity{
		Ticks:      l.evaluator.Ticks(),
		GPIOErrors: l.gpioErrors,
	}
	if l.encoder != nil {
		a.ForwardDetents, a.ReverseDetents = l.encoder.Detents()
	}
	if l.source != nil {
		a.RaisedTicks = l.source.Raised()
		a.DroppedTicks = l.source.Dropped()
	}
	if l.edges != nil {
		a.EncoderEdges = l.edges.Edges()
	}
	l.tracker.SetActivity(a)

	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	if l.mqttBuffer != nil {
		l.tracker.SetMQTTBuffer(l.mqttBuffer.Buffered(), l.mqttBuffer.Dropped())
	}
}

func (l *panelLoop) shutdown(s os.Signal) {
	log.Printf("received %v, shutting down", s)
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if l.tracker != nil {
		l.updateTracker()
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

var inputNames = [switches.NumInputs]string{
	"input 1", "input 2", "input 3",
	"output 1", "output 2", "output 3",
	"mono", "dim",
}

// formatInputs renders raw switch levels for -print-state.
func formatInputs(levels gpio.Levels) string {
	var b strings.Builder
	for i, name := range inputNames {
		state := "open"
		if levels.Active(i) {
			state = "closed"
		}
		fmt.Fprintf(&b, "%-9s %s\n", name+":", state)
	}
	fmt.Fprintf(&b, "boot word: %s (attenuation %d)\n", logic.DefaultSwitchState, logic.DefaultAttenuation)
	return b.String()
}

// resolveWSBroker converts the -ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
