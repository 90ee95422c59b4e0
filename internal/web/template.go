package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/preamp-panel/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"selection": func(i int) string {
		if i == 0 {
			return "none"
		}
		return fmt.Sprintf("%d", i)
	},
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Preamp Panel</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.pending { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Preamp Panel{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Panel</h2>
<table>
<tr><th>Input</th><td id="input">{{selection .Panel.Switches.Input}}</td></tr>
<tr><th>Output</th><td id="output">{{selection .Panel.Switches.Output}}</td></tr>
<tr><th>Mono</th><td id="mono" class="{{if .Panel.Switches.Mono}}on{{else}}off{{end}}">{{onOff .Panel.Switches.Mono}}</td></tr>
<tr><th>Dim</th><td id="dim" class="{{if .Panel.Switches.Dim}}on{{else}}off{{end}}">{{onOff .Panel.Switches.Dim}}</td></tr>
<tr><th>Attenuation</th><td id="attenuation">{{.Panel.Attenuation}}</td></tr>
<tr><th>Transmitted</th><td id="transmitted">{{.Panel.Transmitted}}</td></tr>
<tr><th>Switch word</th><td id="switch-state">{{.Panel.Switches}}</td></tr>
<tr><th>Bus</th><td class="{{if .Panel.Pending}}pending{{end}}">{{if .Panel.Pending}}retry pending{{else if .Panel.Synced}}in sync{{else}}waiting{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .MQTTBuffered}}<tr><th>Held</th><td>{{.MQTTBuffered}} messages</td></tr>{{end}}
</table>

<h2>Counters</h2>
<table>
<tr><th>Ticks</th><td>{{.Activity.Ticks}}</td></tr>
<tr><th>Raised ticks</th><td>{{.Activity.RaisedTicks}}</td></tr>
<tr><th>Dropped ticks</th><td>{{.Activity.DroppedTicks}}</td></tr>
<tr><th>Evaluations</th><td>{{.Counts.Evaluations}}</td></tr>
<tr><th>Bus writes</th><td>{{.Counts.BusTx}}</td></tr>
<tr><th>Bus errors</th><td>{{.Counts.BusErrors}}</td></tr>
<tr><th>Shift-outs</th><td>{{.Counts.ShiftOuts}}</td></tr>
<tr><th>Detents</th><td>+{{.Activity.ForwardDetents}} / -{{.Activity.ReverseDetents}}</td></tr>
<tr><th>Encoder edges</th><td>{{.Activity.EncoderEdges}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickUs}}us / {{.Config.Divider}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceTicks}} ticks</td></tr>
<tr><th>Bus</th><td>{{.Config.BusDevice}} @ {{printf "0x%02x" .Config.BusAddress}}</td></tr>
<tr><th>Shift driver</th><td>{{.Config.ShiftDriver}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "preamp/panel/events";
  var dot = document.getElementById("live-dot");

  function setText(id, v) {
    document.getElementById(id).textContent = v;
  }

  function setFlag(id, on) {
    var el = document.getElementById(id);
    el.textContent = on ? "ON" : "OFF";
    el.className = on ? "on" : "off";
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.panel) {
        setText("input", msg.panel.input || "none");
        setText("output", msg.panel.output || "none");
        setFlag("mono", msg.panel.mono);
        setFlag("dim", msg.panel.dim);
        setText("attenuation", msg.panel.attenuation);
        setText("transmitted", msg.panel.transmitted);
        setText("switch-state", msg.panel.switch_state);
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
