package main

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
	"github.com/ruslano69/tdtp-viewer/pkg/export"
	"github.com/ruslano69/tdtp-viewer/pkg/grid"
	"github.com/ruslano69/tdtp-viewer/pkg/viewer"
)

// page is everything the index page shows.
type page struct {
	Title    string
	Datasets []string
	State    viewer.State
	View     grid.View
	Exports  []*export.Artifact
	Error    string // catalog error, shown above the state panel
}

// renderPage writes the viewer page. Exactly one state panel is rendered,
// marked with data-state.
func renderPage(w http.ResponseWriter, p page) {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
`)
	if p.State.Status == viewer.StatusLoading {
		b.WriteString(`<meta http-equiv="refresh" content="1">` + "\n")
	}
	b.WriteString(`<title>` + html.EscapeString(p.Title) + `</title>
` + commonCSS() + `
</head>
<body>
<div class="container">
`)
	writeNavbar(&b, p.Title, p.State.Dataset)
	writeToolbar(&b, p)

	if p.Error != "" {
		b.WriteString(`<div class="error-bar">` + html.EscapeString(p.Error) + `</div>`)
	}

	switch p.State.Status {
	case viewer.StatusIdle:
		b.WriteString(`<div class="panel" data-state="idle">Select a dataset to view.</div>`)
	case viewer.StatusLoading:
		b.WriteString(`<div class="panel" data-state="loading"><span class="spinner"></span>Loading ` +
			html.EscapeString(p.State.Dataset) + `&hellip;</div>`)
	case viewer.StatusEmpty:
		b.WriteString(`<div class="panel" data-state="empty">No data</div>`)
	case viewer.StatusFailed:
		b.WriteString(`<div class="panel error-bar" data-state="failed">` + html.EscapeString(p.State.Message) + `</div>`)
	case viewer.StatusLoaded:
		writeTable(&b, p.State, p.View)
	}

	if len(p.Exports) > 0 {
		writeExports(&b, p.Exports)
	}

	b.WriteString(`<div class="footer">tdtpview</div>`)
	b.WriteString(`</div></body></html>`)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, b.String())
}

func writeToolbar(b *strings.Builder, p page) {
	b.WriteString(`<div class="toolbar">`)
	b.WriteString(`<form method="POST" action="/select">`)
	b.WriteString(`<select class="filter-input" name="dataset">`)
	for _, name := range p.Datasets {
		sel := ""
		if name == p.State.Dataset {
			sel = ` selected`
		}
		b.WriteString(`<option value="` + html.EscapeString(name) + `"` + sel + `>` + html.EscapeString(name) + `</option>`)
	}
	b.WriteString(`</select> <button class="btn btn-primary" type="submit">Show</button></form>`)

	if p.State.Dataset != "" {
		b.WriteString(`<form method="POST" action="/reload"><button class="btn btn-ghost" type="submit">Reload</button></form>`)
	}
	if p.State.Status == viewer.StatusLoaded {
		b.WriteString(`<form method="POST" action="/export/csv"><button class="btn btn-ghost" type="submit">Export CSV</button></form>`)
		b.WriteString(`<form method="POST" action="/export/xlsx"><button class="btn btn-ghost" type="submit">Export Excel</button></form>`)
	}
	b.WriteString(`</div>`)
}

func writeTable(b *strings.Builder, st viewer.State, v grid.View) {
	b.WriteString(`<div class="card" data-state="loaded">`)
	b.WriteString(`<div class="card-header">` + html.EscapeString(st.Dataset) +
		` <span class="pill">` + strconv.Itoa(v.Visible) + ` / ` + strconv.Itoa(v.Total) + ` rows</span></div>`)
	b.WriteString(`<div class="data-wrapper"><table class="data-table"><thead><tr><th class="row-num">#</th>`)
	for _, col := range v.Columns {
		b.WriteString(`<th>` + html.EscapeString(col) + `</th>`)
	}
	b.WriteString(`</tr></thead><tbody>`)

	for i, r := range v.Rows {
		b.WriteString(`<tr><td class="row-num">` + strconv.Itoa(i+1) + `</td>`)
		for _, val := range r.Values(v.Columns) {
			writeCell(b, val)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table></div>`)

	b.WriteString(`<div class="stats-bar">`)
	b.WriteString(`<span><strong>` + strconv.Itoa(v.Visible) + `</strong> rows shown</span>`)
	b.WriteString(`<span><strong>` + strconv.Itoa(len(v.Columns)) + `</strong> columns</span>`)
	if len(v.Filters) > 0 {
		b.WriteString(`<span><strong>` + strconv.Itoa(len(v.Filters)) + `</strong> filter(s)</span>`)
	}
	b.WriteString(`<span>generation ` + strconv.FormatUint(st.Generation, 10) + `</span>`)
	b.WriteString(`</div></div>`)
}

func writeCell(b *strings.Builder, v dataset.Value) {
	switch dataset.KindOf(v) {
	case dataset.KindNull:
		b.WriteString(`<td><span class="null-val">NULL</span></td>`)
	case dataset.KindInteger, dataset.KindReal:
		b.WriteString(`<td class="num-val">` + html.EscapeString(dataset.FormatValue(v)) + `</td>`)
	case dataset.KindBoolean:
		cls := "bool-false"
		if v == true {
			cls = "bool-true"
		}
		b.WriteString(`<td><span class="` + cls + `">` + dataset.FormatValue(v) + `</span></td>`)
	case dataset.KindBlob:
		b.WriteString(`<td><span class="null-val">&lt;binary&gt;</span></td>`)
	default:
		b.WriteString(`<td>` + html.EscapeString(dataset.FormatValue(v)) + `</td>`)
	}
}

func writeExports(b *strings.Builder, exports []*export.Artifact) {
	b.WriteString(`<div class="card"><div class="card-header">Exports</div><div class="meta-grid exports">`)
	for _, a := range exports {
		b.WriteString(`<div class="meta-item">`)
		b.WriteString(`<a class="meta-value" href="/api/exports/` + html.EscapeString(a.ID) + `">` + html.EscapeString(a.FileName) + `</a>`)
		b.WriteString(`<span class="meta-label">` + strconv.Itoa(a.Rows) + ` rows, ` + a.CreatedAt.Format("2006-01-02 15:04:05") + `</span>`)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></div>`)
}

func commonCSS() string {
	return `<style>
  * { box-sizing:border-box; margin:0; padding:0; }
  body { font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,sans-serif; background:#0f1117; color:#e2e8f0; min-height:100vh; padding:24px; }
  .container { max-width:1600px; margin:0 auto; }
  .navbar { display:flex; align-items:center; gap:12px; margin-bottom:24px; padding-bottom:16px; border-bottom:1px solid #1e293b; }
  .nav-sep   { color:#334155; }
  .nav-sub   { font-size:16px; color:#94a3b8; font-weight:500; }
  .nav-home  { color:#60a5fa; text-decoration:none; font-weight:700; font-size:18px; }
  .toolbar   { display:flex; gap:12px; flex-wrap:wrap; align-items:center; margin-bottom:20px; }
  .filter-input { background:#0f172a; border:1px solid #334155; border-radius:6px; color:#e2e8f0; padding:7px 10px; font-size:13px; font-family:monospace; }
  .btn { padding:8px 18px; border-radius:6px; font-size:13px; font-weight:600; cursor:pointer; border:none; }
  .btn-primary { background:#2563eb; color:#fff; }
  .btn-ghost   { background:#1e293b; color:#94a3b8; border:1px solid #334155; }
  .panel { background:#1e293b; border:1px solid #334155; border-radius:12px; padding:32px; text-align:center; color:#94a3b8; margin-bottom:20px; }
  .error-bar { background:#3a1a1a; border:1px solid #f87171; border-radius:8px; padding:10px 16px; margin-bottom:16px; color:#f87171; font-size:13px; }
  .spinner { display:inline-block; width:14px; height:14px; margin-right:10px; border:2px solid #334155; border-top-color:#60a5fa; border-radius:50%; animation:spin 1s linear infinite; vertical-align:middle; }
  @keyframes spin { to { transform:rotate(360deg); } }
  .meta-grid   { display:grid; grid-template-columns:repeat(auto-fill,minmax(200px,1fr)); gap:12px; padding:16px 20px; }
  .meta-item   { display:flex; flex-direction:column; gap:2px; }
  .meta-label  { font-size:11px; font-weight:600; color:#64748b; text-transform:uppercase; letter-spacing:.05em; }
  .meta-value  { font-size:13px; color:#cbd5e1; font-family:monospace; word-break:break-all; }
  .card        { background:#1e293b; border:1px solid #334155; border-radius:12px; margin-bottom:20px; overflow:hidden; }
  .card-header { padding:14px 20px; border-bottom:1px solid #334155; font-size:14px; font-weight:600; color:#94a3b8; display:flex; align-items:center; gap:10px; background:#0f172a; }
  .pill        { background:#334155; color:#94a3b8; padding:2px 8px; border-radius:10px; font-size:11px; font-weight:600; }
  .data-wrapper { overflow-x:auto; }
  .data-table { width:100%; border-collapse:collapse; font-size:13px; }
  .data-table th { padding:10px 14px; text-align:left; font-size:11px; font-weight:600; color:#475569; text-transform:uppercase; border-bottom:2px solid #334155; background:#0f172a; white-space:nowrap; position:sticky; top:0; }
  .data-table td { padding:8px 14px; border-bottom:1px solid #1e293b; font-family:monospace; color:#cbd5e1; max-width:320px; overflow:hidden; text-overflow:ellipsis; white-space:nowrap; }
  .data-table tr:nth-child(even) td { background:#18222f; }
  .null-val  { color:#475569; font-style:italic; }
  .num-val   { color:#60a5fa; }
  .bool-true { color:#34d399; }
  .bool-false{ color:#f87171; }
  .row-num   { color:#475569; text-align:right; font-size:11px; }
  .stats-bar { display:flex; gap:24px; flex-wrap:wrap; padding:12px 20px; background:#0f172a; border-top:1px solid #334155; font-size:12px; color:#64748b; }
  .stats-bar strong { color:#94a3b8; }
  .footer    { text-align:center; padding:20px; font-size:11px; color:#334155; }
</style>`
}

func writeNavbar(b *strings.Builder, serverName, datasetName string) {
	b.WriteString(`<div class="navbar">`)
	b.WriteString(`<a class="nav-home" href="/">` + html.EscapeString(serverName) + `</a>`)
	if datasetName != "" {
		b.WriteString(`<span class="nav-sep">/</span>`)
		b.WriteString(`<span class="nav-sub">` + html.EscapeString(datasetName) + `</span>`)
	}
	b.WriteString(`</div>`)
}
