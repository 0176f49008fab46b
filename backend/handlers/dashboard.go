package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// Dashboard serves the single-page web dashboard
// GET /
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(dashboardHTML)
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>CWatch Dashboard</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #0f172a;
            color: #e2e8f0;
            padding: 20px;
        }
        .container { max-width: 1200px; margin: 0 auto; }
        .header { display: flex; justify-content: space-between; align-items: baseline; margin-bottom: 20px; }
        .header h1 { font-size: 1.8em; }
        .status { font-size: 0.9em; color: #94a3b8; }
        .status.stale { color: #f87171; }
        .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(170px, 1fr)); gap: 12px; margin-bottom: 20px; }
        .card { background: #1e293b; border-radius: 10px; padding: 16px; }
        .card .label { font-size: 0.8em; color: #94a3b8; text-transform: uppercase; }
        .card .value { font-size: 1.8em; font-weight: 600; margin-top: 6px; }
        .panel { background: #1e293b; border-radius: 10px; padding: 16px; margin-bottom: 20px; }
        .panel h2 { font-size: 1.1em; margin-bottom: 12px; }
        .chart { display: flex; align-items: flex-end; gap: 3px; height: 160px; }
        .bar { flex: 1; background: #38bdf8; border-radius: 3px 3px 0 0; min-height: 1px; position: relative; }
        .bar:hover::after {
            content: attr(data-tip); position: absolute; bottom: 100%; left: 50%;
            transform: translateX(-50%); background: #334155; padding: 2px 6px;
            border-radius: 4px; font-size: 0.75em; white-space: nowrap;
        }
        .axis { display: flex; justify-content: space-between; font-size: 0.75em; color: #64748b; margin-top: 4px; }
        .grid { display: grid; grid-template-columns: 1fr 1fr; gap: 20px; }
        table { width: 100%; border-collapse: collapse; font-size: 0.9em; }
        th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #334155; }
        th { color: #94a3b8; font-weight: 500; }
        button { background: #334155; color: #e2e8f0; border: 0; border-radius: 6px; padding: 4px 10px; cursor: pointer; }
        button.danger { background: #b91c1c; }
        .empty { color: #64748b; padding: 10px 0; }
        .badge { border-radius: 4px; padding: 1px 6px; font-size: 0.8em; }
        .badge.blocked { background: #7f1d1d; }
        .badge.verified { background: #14532d; }
        .badge.suspicious { background: #78350f; }
        .loading { text-align: center; padding: 80px; color: #94a3b8; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>CWatch Dashboard</h1>
            <div>
                <span id="status" class="status">connecting…</span>
                <button onclick="refreshNow()">Refresh</button>
            </div>
        </div>
        <div id="loading" class="loading">Loading dashboard data…</div>
        <div id="content" style="display:none">
            <div class="cards" id="cards"></div>
            <div class="panel">
                <h2>Traffic (last 24 hours)</h2>
                <div class="chart" id="chart"></div>
                <div class="axis"><span id="axis-start"></span><span id="axis-end"></span></div>
            </div>
            <div class="grid">
                <div class="panel"><h2>Suspicious IPs</h2><div id="suspicious"></div></div>
                <div class="panel"><h2>Blocked IPs</h2><div id="blocked"></div></div>
            </div>
            <div class="panel"><h2>Recent Activity</h2><div id="activity"></div></div>
        </div>
    </div>

    <script>
        const fmt = new Intl.NumberFormat();
        let lastState = null;

        function esc(s) {
            return String(s ?? '').replace(/[&<>"']/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));
        }

        function card(label, value) {
            return '<div class="card"><div class="label">' + label + '</div><div class="value">' + value + '</div></div>';
        }

        function when(r) {
            const t = r.detected_at || r.blocked_at || r.verified_at;
            return t ? new Date(t.endsWith('Z') ? t : t + 'Z').toLocaleString() : '-';
        }

        function ipTable(rows, action, label, cls) {
            if (!rows.length) return '<div class="empty">None</div>';
            let html = '<table><tr><th>IP</th><th>Reason</th><th>Country</th><th>Time</th><th></th></tr>';
            for (const r of rows) {
                html += '<tr><td>' + esc(r.ip) + '</td><td>' + esc(r.reason) + '</td><td>' + esc(r.country || '-') +
                    '</td><td>' + when(r) + '</td><td><button class="' + cls + '" onclick="mutate(\'' + action + '\', \'' +
                    esc(r.ip) + '\')">' + label + '</button></td></tr>';
            }
            return html + '</table>';
        }

        function render(state) {
            lastState = state;
            const status = document.getElementById('status');
            if (state.phase === 'loading' || state.phase === 'uninitialized') {
                status.textContent = 'loading…';
                return;
            }
            document.getElementById('loading').style.display = 'none';
            document.getElementById('content').style.display = 'block';

            const updated = state.last_updated && !state.last_updated.startsWith('0001')
                ? new Date(state.last_updated).toLocaleTimeString() : 'never';
            status.textContent = (state.stale ? 'STALE: ' + state.last_error + ' · ' : '') + 'updated ' + updated;
            status.className = state.stale ? 'status stale' : 'status';

            const s = state.stats || {};
            document.getElementById('cards').innerHTML =
                card('Total Requests', fmt.format(s.total_requests || 0)) +
                card('Requests Today', fmt.format(s.requests_today || 0)) +
                card('Requests / Hour', fmt.format(s.requests_hour || 0)) +
                card('Requests / Sec', (s.requests_per_second || 0).toFixed(2)) +
                card('Suspicious IPs', fmt.format(s.suspicious_ips || 0)) +
                card('Blocked IPs', fmt.format(s.blocked_ips || 0));

            const series = state.traffic || [];
            const peak = Math.max(1, ...series.map(p => p.requests));
            document.getElementById('chart').innerHTML = series.map(p =>
                '<div class="bar" style="height:' + (100 * p.requests / peak) + '%" data-tip="' +
                p.time + ' · ' + fmt.format(p.requests) + '"></div>').join('');
            document.getElementById('axis-start').textContent = series.length ? series[0].time : '';
            document.getElementById('axis-end').textContent = series.length ? series[series.length - 1].time : '';

            document.getElementById('suspicious').innerHTML = ipTable(state.suspicious || [], 'block', 'Block', 'danger');
            document.getElementById('blocked').innerHTML = ipTable(state.blocked || [], 'unblock', 'Unblock', '');

            const activity = state.activity || [];
            document.getElementById('activity').innerHTML = activity.length
                ? '<table><tr><th>IP</th><th>Reason</th><th>Time</th><th>Status</th></tr>' + activity.map(a => {
                    const st = a.status === 'blocked' || a.status === 'verified' ? a.status : 'suspicious';
                    return '<tr><td>' + esc(a.ip) + '</td><td>' + esc(a.reason) + '</td><td>' +
                        esc(a.time ? new Date(a.time + 'Z').toLocaleString() : '-') +
                        '</td><td><span class="badge ' + st + '">' + st + '</span></td></tr>';
                }).join('') + '</table>'
                : '<div class="empty">No recent activity</div>';
        }

        async function mutate(action, ip) {
            if (!confirm((action === 'block' ? 'Block ' : 'Unblock ') + ip + '?')) return;
            const res = await fetch('/api/view/' + action + '/' + encodeURIComponent(ip), { method: 'POST' });
            const body = await res.json();
            if (body.error) alert(body.error);
            if (body.state) render(body.state);
        }

        async function refreshNow() {
            const res = await fetch('/api/view/refresh', { method: 'POST' });
            const body = await res.json();
            if (body.state) render(body.state);
        }

        function connect() {
            const source = new EventSource('/api/view/stream');
            source.addEventListener('state', e => render(JSON.parse(e.data)));
            source.onerror = () => {
                document.getElementById('status').textContent = 'gateway unreachable, retrying…';
                document.getElementById('status').className = 'status stale';
            };
        }

        fetch('/api/view/state').then(r => r.json()).then(render).catch(() => {});
        connect();
    </script>
</body>
</html>
`
