package report

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Trend &amp; Inventory Report</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem auto; max-width: 960px; color: #222; }
h1 { margin-bottom: 0; }
.meta { color: #666; margin-top: .25rem; }
.notice { background: #fff4e5; border-left: 4px solid #f0a020; padding: .75rem 1rem; }
.cards { display: flex; gap: 1rem; margin: 1.5rem 0; }
.card { flex: 1; border: 1px solid #ddd; border-radius: 6px; padding: 1rem; }
.card .value { font-size: 1.6rem; font-weight: bold; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1.5rem; }
th, td { border-bottom: 1px solid #eee; padding: .4rem .6rem; text-align: left; }
th { background: #f7f7f7; }
.num { text-align: right; font-variant-numeric: tabular-nums; }
.status-rising { color: #1a7f37; font-weight: bold; }
.status-declining { color: #cf222e; font-weight: bold; }
.status-peaking { color: #9a6700; font-weight: bold; }
.status-stable { color: #57606a; }
.urgent { color: #cf222e; font-weight: bold; }
.reorder { color: #9a6700; }
</style>
</head>
<body>
<h1>Trend &amp; Inventory Report</h1>
<p class="meta">Generated {{stamp .GeneratedAt}}{{if .Season}} &middot; {{.Season}}{{end}}{{if .UpcomingEvents}} &middot; Upcoming: {{join .UpcomingEvents ", "}}{{end}}</p>
{{if .Synthetic}}<p class="notice">Live trend data was unavailable. Trend figures below are placeholders.</p>{{end}}

<div class="cards">
  <div class="card"><div>Products</div><div class="value">{{.Summary.TotalItems}}</div></div>
  <div class="card"><div>Low stock</div><div class="value">{{.Summary.LowStockItems}}</div></div>
  <div class="card"><div>Inventory value</div><div class="value">{{money .Summary.TotalValue}}</div></div>
</div>

<h2>Trends</h2>
{{if .Trends}}
<table>
<thead><tr><th>#</th><th>Keyword</th><th>Status</th><th class="num">Confidence</th><th class="num">Velocity</th><th class="num">Strength</th><th class="num">Current</th><th class="num">Peak</th></tr></thead>
<tbody>
{{range $i, $t := .Trends}}<tr><td>{{inc $i}}</td><td>{{$t.Keyword}}</td><td class="{{statusClass $t.Status}}">{{$t.Status}}</td><td class="num">{{fixed $t.Confidence}}</td><td class="num">{{signed $t.Velocity}}</td><td class="num">{{fixed $t.Strength}}</td><td class="num">{{fixed $t.CurrentValue}}</td><td class="num">{{fixed $t.PeakValue}}</td></tr>
{{end}}</tbody>
</table>
{{else}}
<p>No trends met the confidence threshold.</p>
{{end}}

<h2>Recommendations</h2>
<div class="recommendations">{{.RecommendationsHTML}}</div>

{{if .LowStock}}
<h2>Low Stock</h2>
<table>
<thead><tr><th>Product</th><th>SKU</th><th class="num">Stock</th><th class="num">Reorder point</th><th>Action</th></tr></thead>
<tbody>
{{range .LowStock}}<tr><td>{{.ProductName}}</td><td>{{.SKU}}</td><td class="num">{{.CurrentStock}}</td><td class="num">{{.ReorderPoint}}</td>{{if .Urgent}}<td class="urgent">URGENT</td>{{else}}<td class="reorder">REORDER</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{end}}
</body>
</html>
`
