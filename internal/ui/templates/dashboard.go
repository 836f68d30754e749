// Package templates holds the server-rendered dashboard shell. The page is
// static HTML; the panels load their content over the datastar SSE endpoints.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, dashboardHTML)
		return err
	})
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Retail Analytics</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.11/bundles/datastar.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f5f6f8; color: #1f2430; }
header { background: #1f2430; color: #fff; padding: 1rem 2rem; }
header h1 { margin: 0; font-size: 1.25rem; }
main { padding: 1.5rem 2rem; display: grid; gap: 1.5rem; }
section { background: #fff; border-radius: 8px; padding: 1rem 1.25rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
section h2 { margin-top: 0; font-size: 1rem; }
.modern-table { width: 100%; border-collapse: collapse; font-size: .875rem; }
.modern-table th { text-align: left; border-bottom: 2px solid #e2e5ea; padding: .4rem .5rem; }
.modern-table td { border-bottom: 1px solid #eef0f3; padding: .4rem .5rem; }
.pivot-table { font-family: ui-monospace, monospace; font-size: .8rem; overflow-x: auto; }
.refresh-btn { background: #2f6fed; color: #fff; border: 0; border-radius: 6px; padding: .5rem 1rem; cursor: pointer; }
</style>
</head>
<body data-signals="{productsData: [], monthlyData: []}">
<header>
<h1>Retail Analytics Dashboard</h1>
</header>
<main>
<button class="refresh-btn" data-on-click="@get('/sse/refresh-all')">Refresh all</button>
<section data-on-load="@get('/sse/country-revenue')">
<h2>Revenue by Country</h2>
<div id="country-content">Loading...</div>
</section>
<section data-on-load="@get('/sse/monthly-sales')">
<h2>Monthly Sales</h2>
<div id="monthly-content">Loading...</div>
</section>
<section data-on-load="@get('/sse/top-products')">
<h2>Top Products</h2>
<div id="products-content">Loading...</div>
</section>
<section data-on-load="@get('/sse/quarterly-pivot')">
<h2>Revenue by Country and Quarter</h2>
<div id="pivot-content">Loading...</div>
</section>
</main>
</body>
</html>`
