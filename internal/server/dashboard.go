package server

// DashboardHTML is the embedded single-page dashboard for playhead.
// It connects via WebSocket and mirrors playback state in real time,
// with controls that drive the JSON API.
const DashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Playhead Dashboard</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, monospace;
    background: #0d1117; color: #c9d1d9; padding: 20px;
  }
  h1 { color: #58a6ff; margin-bottom: 4px; font-size: 1.5em; }
  .subtitle { color: #8b949e; margin-bottom: 20px; font-size: 0.9em; }
  .status-bar {
    display: flex; gap: 20px; margin-bottom: 20px; padding: 12px 16px;
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
  }
  .status-item { display: flex; flex-direction: column; }
  .status-label { font-size: 0.75em; color: #8b949e; text-transform: uppercase; }
  .status-value { font-size: 1.1em; font-weight: 600; }
  .status-value.connected { color: #3fb950; }
  .status-value.disconnected { color: #f85149; }
  .status-value.playing { color: #3fb950; }
  .status-value.paused { color: #d29922; }
  .status-value.finished { color: #d2a8ff; }
  .status-value.buffering { color: #f85149; }
  .timeline {
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
    padding: 16px; margin-bottom: 20px;
  }
  .track {
    height: 10px; background: #21262d; border-radius: 5px; cursor: pointer;
    overflow: hidden; margin-bottom: 8px;
  }
  .track-fill {
    height: 100%; background: #58a6ff; border-radius: 5px; width: 0%;
    transition: width 0.1s linear;
  }
  .track-fill.skipping { background: #d2a8ff; }
  .timecode { display: flex; justify-content: space-between; color: #8b949e; font-size: 0.85em; }
  .controls {
    display: flex; gap: 8px; margin-bottom: 20px; flex-wrap: wrap;
  }
  .controls button {
    background: #21262d; color: #c9d1d9; border: 1px solid #30363d;
    padding: 8px 16px; border-radius: 6px; cursor: pointer; font-size: 0.9em;
  }
  .controls button:hover { background: #30363d; }
  .controls button.active { border-color: #58a6ff; color: #58a6ff; }
  .stats {
    display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
    gap: 12px;
  }
  .stat-card {
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
    padding: 16px; text-align: center;
  }
  .stat-number { font-size: 2em; font-weight: 700; color: #58a6ff; }
  .stat-number.speed { color: #d2a8ff; }
  .stat-label { font-size: 0.8em; color: #8b949e; margin-top: 4px; }
</style>
</head>
<body>
<h1>Playhead Dashboard</h1>
<p class="subtitle">Session replay control surface</p>

<div class="status-bar">
  <div class="status-item">
    <span class="status-label">Connection</span>
    <span class="status-value disconnected" id="conn-status">Disconnected</span>
  </div>
  <div class="status-item">
    <span class="status-label">Playback</span>
    <span class="status-value paused" id="play-status">Paused</span>
  </div>
  <div class="status-item">
    <span class="status-label">Session</span>
    <span class="status-value" id="session-id">&mdash;</span>
  </div>
</div>

<div class="timeline">
  <div class="track" id="track" onclick="seekTo(event)">
    <div class="track-fill" id="track-fill"></div>
  </div>
  <div class="timecode">
    <span id="time-current">0:00.000</span>
    <span id="time-total">0:00.000</span>
  </div>
</div>

<div class="controls">
  <button onclick="api('/api/play')">Play</button>
  <button onclick="api('/api/pause')">Pause</button>
  <button onclick="api('/api/restart')">Restart</button>
  <button id="speed-1" onclick="setSpeed(1)">1x</button>
  <button id="speed-2" onclick="setSpeed(2)">2x</button>
  <button id="speed-4" onclick="setSpeed(4)">4x</button>
  <button id="speed-8" onclick="setSpeed(8)">8x</button>
  <button id="skip-btn" onclick="toggleSkip()">Skip Inactive</button>
</div>

<div class="stats">
  <div class="stat-card">
    <div class="stat-number speed" id="stat-speed">1x</div>
    <div class="stat-label">Speed</div>
  </div>
  <div class="stat-card">
    <div class="stat-number" id="stat-ff">&mdash;</div>
    <div class="stat-label">Fast Forward</div>
  </div>
  <div class="stat-card">
    <div class="stat-number" id="stat-duration">0</div>
    <div class="stat-label">Duration (ms)</div>
  </div>
</div>

<script>
let state = {};

function connect() {
  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  const ws = new WebSocket(proto + '//' + location.host + '/ws');

  ws.onopen = () => {
    document.getElementById('conn-status').textContent = 'Connected';
    document.getElementById('conn-status').className = 'status-value connected';
  };

  ws.onclose = () => {
    document.getElementById('conn-status').textContent = 'Disconnected';
    document.getElementById('conn-status').className = 'status-value disconnected';
    setTimeout(connect, 2000);
  };

  ws.onmessage = (e) => {
    state = JSON.parse(e.data);
    render();
  };
}

function render() {
  const play = document.getElementById('play-status');
  if (state.is_buffering) {
    play.textContent = 'Buffering'; play.className = 'status-value buffering';
  } else if (state.is_finished) {
    play.textContent = 'Finished'; play.className = 'status-value finished';
  } else if (state.is_playing) {
    play.textContent = 'Playing'; play.className = 'status-value playing';
  } else {
    play.textContent = 'Paused'; play.className = 'status-value paused';
  }

  document.getElementById('session-id').textContent = state.session_id || '—';

  const pct = state.duration_ms > 0 ? (state.current_time_ms / state.duration_ms) * 100 : 0;
  const fill = document.getElementById('track-fill');
  fill.style.width = pct + '%';
  fill.className = state.fast_forward_speed > 0 ? 'track-fill skipping' : 'track-fill';

  document.getElementById('time-current').textContent = fmtMs(state.current_time_ms);
  document.getElementById('time-total').textContent = fmtMs(state.duration_ms);
  document.getElementById('stat-speed').textContent = state.speed + 'x';
  document.getElementById('stat-ff').textContent =
    state.fast_forward_speed > 0 ? state.fast_forward_speed.toFixed(0) + 'x' : '—';
  document.getElementById('stat-duration').textContent = state.duration_ms || 0;

  [1, 2, 4, 8].forEach(s => {
    document.getElementById('speed-' + s).className = state.speed === s ? 'active' : '';
  });
  document.getElementById('skip-btn').className = state.is_skipping_inactive ? 'active' : '';
}

function fmtMs(ms) {
  ms = ms || 0;
  const m = Math.floor(ms / 60000);
  const s = Math.floor((ms % 60000) / 1000);
  const frac = (ms % 1000).toString().padStart(3, '0');
  return m + ':' + s.toString().padStart(2, '0') + '.' + frac;
}

function api(path, body) {
  fetch(path, {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: body ? JSON.stringify(body) : '{}'
  });
}

function setSpeed(s) { api('/api/speed', {speed: s}); }
function toggleSkip() { api('/api/skip', {enabled: !state.is_skipping_inactive}); }

function seekTo(e) {
  if (!state.duration_ms) return;
  const track = document.getElementById('track');
  const rect = track.getBoundingClientRect();
  const frac = (e.clientX - rect.left) / rect.width;
  api('/api/seek', {time_ms: Math.round(frac * state.duration_ms)});
}

connect();
</script>
</body>
</html>`
