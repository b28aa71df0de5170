// Package swagger serves the OpenAPI document and a ReDoc page rendering it.
package swagger

import (
	"context"
	"html/template"
	"net/http"
)

const (
	specPath = "/openapi.yaml"
	docsPath = "/api-docs"
)

// Option applies a configuration option to the docs page.
type Option func(*page)

type page struct {
	Title   string
	SpecURL string
}

// WithTitle sets the docs page title.
func WithTitle(title string) Option {
	return func(p *page) {
		if title != "" {
			p.Title = title
		}
	}
}

var docsTemplate = template.Must(template.New("redoc").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init({{.SpecURL}}, { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`))

// Register attaches the docs routes to mux:
//
//	GET /api-docs      ReDoc page
//	GET /openapi.yaml  embedded OpenAPI document
func Register(_ context.Context, mux *http.ServeMux, opts ...Option) {
	if mux == nil {
		panic("swagger: nil mux")
	}
	p := page{Title: "devpulse API Docs", SpecURL: specPath}
	for _, opt := range opts {
		opt(&p)
	}

	mux.HandleFunc(docsPath, readOnly(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = docsTemplate.Execute(w, p)
	}))
	mux.HandleFunc(specPath, readOnly(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(OpenAPI)
	}))
}

func readOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
