package ui

import (
	"html/template"

	"wootrat/internal/config"
	"wootrat/internal/curve"
	"wootrat/internal/motion"
)

type channelField struct {
	Key   string
	Label string
}

type pageData struct {
	Curves   []curve.Type
	Presets  []string
	Channels []channelField
}

func newPageData() pageData {
	d := pageData{Curves: curve.Types, Presets: config.PresetNames()}
	for _, c := range motion.Channels {
		d.Channels = append(d.Channels, channelField{Key: c.String(), Label: c.Label()})
	}
	return d
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>WootRat Settings</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
            color: #e2e8f0;
            min-height: 100vh;
            padding: 2rem;
        }
        .container { max-width: 900px; margin: 0 auto; }
        h1 { font-size: 2rem; margin-bottom: 1.5rem; color: #f0b43c; }
        .card {
            background: rgba(255,255,255,0.05);
            border: 1px solid rgba(255,255,255,0.1);
            border-radius: 16px;
            padding: 1.5rem;
            margin-bottom: 1.5rem;
        }
        .card h2 { font-size: 1.2rem; margin-bottom: 1rem; color: #a5b4fc; }
        .grid { display: grid; grid-template-columns: 1fr 1fr; gap: 0.75rem 1.5rem; }
        label { display: block; font-size: 0.85rem; color: #94a3b8; margin-bottom: 0.25rem; }
        input, select {
            width: 100%; padding: 0.5rem; border-radius: 8px;
            border: 1px solid rgba(255,255,255,0.15);
            background: rgba(0,0,0,0.25); color: #e2e8f0;
        }
        input.invalid, select.invalid { border-color: #f87171; }
        .row { display: flex; gap: 0.75rem; align-items: center; margin-top: 1rem; }
        button {
            padding: 0.55rem 1.2rem; border: none; border-radius: 8px; cursor: pointer;
            background: #f0b43c; color: #1a1a2e; font-weight: 600;
        }
        button.secondary { background: rgba(255,255,255,0.1); color: #e2e8f0; }
        #message { font-size: 0.9rem; }
        .bars { display: grid; grid-template-columns: 7rem 1fr 1fr; gap: 0.3rem 0.75rem; font-size: 0.8rem; }
        .bar { height: 0.7rem; background: rgba(255,255,255,0.08); border-radius: 4px; overflow: hidden; }
        .bar span { display: block; height: 100%; background: #a5b4fc; width: 0; }
        .bar.out span { background: #f0b43c; }
        canvas { width: 100%; height: 220px; background: rgba(0,0,0,0.2); border-radius: 8px; }
        #status { font-size: 0.85rem; color: #94a3b8; margin-bottom: 1rem; }
    </style>
</head>
<body>
<div class="container">
    <h1>WootRat</h1>
    <div id="status">connecting…</div>

    <div class="card">
        <h2>Response</h2>
        <div class="grid">
            <div><label for="mouse_sensitivity">Mouse sensitivity</label><input id="mouse_sensitivity" type="number" step="0.5" min="0"></div>
            <div><label for="scroll_sensitivity">Scroll sensitivity</label><input id="scroll_sensitivity" type="number" step="0.05" min="0"></div>
            <div><label for="y_sensitivity_adjustment">Vertical damping</label><input id="y_sensitivity_adjustment" type="number" step="0.01" min="0" max="1"></div>
            <div><label for="curve_type">Curve</label>
                <select id="curve_type">{{range .Curves}}<option value="{{.}}">{{.}}</option>{{end}}</select></div>
            <div><label for="curve_factor">Curve factor</label><input id="curve_factor" type="number" step="0.1" min="0"></div>
            <div><label for="poll_interval_ms">Poll interval (ms)</label><input id="poll_interval_ms" type="number" step="1" min="1" max="1000"></div>
            <div><label for="deadzone">Activation point</label><input id="deadzone" type="number" step="0.01" min="0" max="1"></div>
            <div><label for="outer_deadzone">Maximum actuation</label><input id="outer_deadzone" type="number" step="0.01" min="0" max="1"></div>
        </div>
        <canvas id="curve" width="800" height="220"></canvas>
    </div>

    <div class="card">
        <h2>Keys</h2>
        <div class="row" style="margin-top:0;margin-bottom:1rem">
            <select id="preset">{{range .Presets}}<option>{{.}}</option>{{end}}</select>
            <button class="secondary" onclick="applyPreset()">Apply preset</button>
        </div>
        <datalist id="keynames"></datalist>
        <div class="grid">
            {{range .Channels}}<div><label for="{{.Key}}">{{.Label}}</label><input id="{{.Key}}" list="keynames"></div>
            {{end}}
            <div><label for="activation_gate">Require activation key</label>
                <select id="activation_gate"><option value="false">No</option><option value="true">Yes</option></select></div>
            <div><label for="activation_key">Activation key</label><input id="activation_key" list="keynames"></div>
        </div>
    </div>

    <div class="card">
        <h2>Live</h2>
        <div class="bars" id="bars">
            {{range $i, $c := .Channels}}<div>{{$c.Label}}</div><div class="bar"><span id="raw{{$i}}"></span></div><div class="bar out"><span id="out{{$i}}"></span></div>
            {{end}}
        </div>
    </div>

    <div class="row">
        <button onclick="save()">Save</button>
        <button class="secondary" id="pause" onclick="togglePause()">Pause</button>
        <span id="message"></span>
    </div>
</div>
<script>
    const numeric = ['mouse_sensitivity','scroll_sensitivity','y_sensitivity_adjustment','curve_factor','deadzone','outer_deadzone','poll_interval_ms'];
    const text = [{{range .Channels}}'{{.Key}}',{{end}}'curve_type','activation_key'];
    let paused = false;

    function el(id) { return document.getElementById(id); }
    function say(msg, bad) { el('message').textContent = msg; el('message').style.color = bad ? '#f87171' : '#86efac'; }

    function fill(s) {
        numeric.concat(text).forEach(k => { if (el(k)) el(k).value = s[k]; });
        el('activation_gate').value = String(s.activation_gate);
        drawCurve();
    }

    function collect() {
        const s = {};
        numeric.forEach(k => s[k] = Number(el(k).value));
        text.forEach(k => s[k] = el(k).value);
        s.activation_gate = el('activation_gate').value === 'true';
        return s;
    }

    async function send(url, body) {
        document.querySelectorAll('.invalid').forEach(e => e.classList.remove('invalid'));
        const res = await fetch(url, {method: 'POST', headers: {'Content-Type': 'application/json'}, body: body ? JSON.stringify(body) : undefined});
        const data = await res.json();
        if (!res.ok) {
            if (data.field && el(data.field)) el(data.field).classList.add('invalid');
            say(data.error, true);
            return null;
        }
        return data;
    }

    async function save() {
        const s = await send('/api/settings', collect());
        if (s) { fill(s); say('Saved'); }
    }

    async function applyPreset() {
        const s = await send('/api/preset?name=' + encodeURIComponent(el('preset').value));
        if (s) { fill(s); say('Preset applied'); }
    }

    async function togglePause() {
        const st = await send('/api/pause?paused=' + (!paused));
        if (st) showStatus(st);
    }

    function showStatus(st) {
        paused = st.paused;
        el('pause').textContent = paused ? 'Resume' : 'Pause';
        el('status').textContent = st.state + (paused ? ' (paused)' : '') + ' · ' + st.backend + ' · ' + st.devices + ' device(s) · ' + st.config_path + (st.error ? ' · ' + st.error : '');
    }

    async function drawCurve() {
        const q = new URLSearchParams({points: 100, curve_type: el('curve_type').value,
            curve_factor: el('curve_factor').value, deadzone: el('deadzone').value, outer_deadzone: el('outer_deadzone').value});
        const res = await fetch('/api/curve?' + q);
        const data = await res.json();
        const c = el('curve'), g = c.getContext('2d');
        g.clearRect(0, 0, c.width, c.height);
        if (!res.ok) { say(data.error, true); return; }
        g.strokeStyle = '#f0b43c'; g.lineWidth = 2; g.beginPath();
        data.points.forEach((p, i) => {
            const x = p.raw * (c.width - 20) + 10, y = c.height - 10 - p.out * (c.height - 20);
            i ? g.lineTo(x, y) : g.moveTo(x, y);
        });
        g.stroke();
    }

    function connect() {
        const ws = new WebSocket('ws://' + location.host + '/ws');
        ws.onmessage = ev => {
            const m = JSON.parse(ev.data);
            if (m.type === 'status') showStatus(m.payload);
            if (m.type === 'tick') {
                m.payload.raw.forEach((v, i) => el('raw' + i).style.width = (v * 100) + '%');
                m.payload.processed.forEach((v, i) => el('out' + i).style.width = (v * 100) + '%');
            }
        };
        ws.onclose = () => setTimeout(connect, 2000);
    }

    ['curve_type','curve_factor','deadzone','outer_deadzone'].forEach(k => el(k).addEventListener('input', drawCurve));

    (async () => {
        const [settings, names, st] = await Promise.all([
            fetch('/api/settings').then(r => r.json()),
            fetch('/api/keys').then(r => r.json()),
            fetch('/api/status').then(r => r.json()),
        ]);
        el('keynames').innerHTML = names.map(n => '<option value="' + n + '">').join('');
        fill(settings);
        showStatus(st);
        connect();
        setInterval(() => fetch('/api/status').then(r => r.json()).then(showStatus), 2000);
    })();
</script>
</body>
</html>
`))
