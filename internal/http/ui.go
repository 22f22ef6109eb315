package http

import nethttp "net/http"

func dashboardHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Federation Dashboard</title>
  <style>
    :root { --blue: #0e5d8f; --bg: #f7f7f7; --paper: #fff; --text: #333; --muted: #777; --line: #ddd; --bad: #a94442; --bad-bg: #f2dede; }
    body { margin: 0; font-family: sans-serif; background: var(--bg); color: var(--text); }
    header { background: var(--blue); color: #fff; padding: 12px 20px; font-weight: 600; }
    main { padding: 16px 20px; }
    #alert { display: none; white-space: pre-wrap; background: var(--bad-bg); color: var(--bad); border: 1px solid var(--bad); padding: 10px; margin-bottom: 12px; }
    #alert button { float: right; }
    .cards { display: grid; grid-template-columns: repeat(auto-fill, minmax(240px, 1fr)); gap: 10px; }
    .card { background: var(--paper); border: 1px solid var(--line); padding: 10px; }
    .card.bad { border-color: var(--bad); }
    .hint { color: var(--muted); font-size: 12px; }
    .mono { font-family: monospace; }
  </style>
</head>
<body>
  <header>Federation Dashboard</header>
  <main>
    <div id="alert"><button id="alert-close">close</button><div id="alert-body"></div></div>
    <div class="hint">Data: <span class="mono">/api/v1/cards</span>, <span class="mono">/api/v1/calendar/tiles</span>, <span class="mono">/api/v1.0/downtime</span>, <span class="mono">/api/v1/metrics/pages</span></div>
    <h3>Servers</h3>
    <div id="cards" class="cards"></div>
  </main>
  <script>
    async function getJSON(url) {
      const r = await fetch(url);
      return r.json();
    }

    async function loadAlert() {
      const res = await getJSON('/api/v1/alerts/current');
      const box = document.getElementById('alert');
      if (!res.data) { box.style.display = 'none'; return; }
      document.getElementById('alert-body').textContent = res.data.title + '\n' + (res.data.error || '');
      box.style.display = 'block';
    }

    async function loadCards() {
      const res = await getJSON('/api/v1/cards');
      const root = document.getElementById('cards');
      root.innerHTML = '';
      if (res.error) { root.textContent = res.error; return; }
      for (const c of res.data || []) {
        const el = document.createElement('div');
        el.className = 'card' + (c.healthStatus === 'Error' ? ' bad' : '');
        const down = (c.downtimes || []).length;
        el.textContent = c.name + ' (' + (c.type || '') + ')' + (c.filtered ? ' filtered' : '') + (down ? ' downtime: ' + down : '');
        root.appendChild(el);
      }
    }

    document.getElementById('alert-close').addEventListener('click', async () => {
      await fetch('/api/v1/alerts/close', { method: 'POST' });
      loadAlert();
    });

    loadCards().finally(loadAlert);
    setInterval(() => { loadCards().finally(loadAlert); }, 30000);
  </script>
</body>
</html>
`
