package httpx

import (
	"encoding/json"
	"html/template"
	"net/http"

	"battle-relay/internal/relay"
)

type StatusAPI struct{ Relay *relay.Manager }

// Rooms returns the registry snapshot as JSON.
func (a *StatusAPI) Rooms(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.Relay.Snapshot())
}

// Page renders the human-readable status page.
func (a *StatusAPI) Page(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = statusTemplate.Execute(w, a.Relay.Snapshot())
}

var statusTemplate = template.Must(template.New("status").Parse(`<!doctype html>
<html>
<head><title>battle relay</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 4px 10px; text-align: left; }
.empty { color: #999; }
</style>
</head>
<body>
<h1>battle relay</h1>
<p>{{.RoomCount}} room(s), {{.Occupants}} occupant(s)</p>
{{if .Rooms}}
<table>
<tr><th>room</th><th>host</th><th>join</th></tr>
{{range .Rooms}}
<tr>
<td>{{.Key}}</td>
<td>{{if .HostOccupied}}{{.Host}}{{else}}<span class="empty">waiting</span>{{end}}</td>
<td>{{if .JoinOccupied}}{{.Join}}{{else}}<span class="empty">waiting</span>{{end}}</td>
</tr>
{{end}}
</table>
{{else}}
<p class="empty">no active rooms</p>
{{end}}
</body>
</html>
`))
