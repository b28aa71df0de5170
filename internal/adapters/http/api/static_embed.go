package api

import (
	"embed"
	"html/template"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// dashboardTemplate is parsed once at init; a broken template fails fast.
var dashboardTemplate = template.Must(
	template.New("dashboard.html").Funcs(template.FuncMap{
		"medal": medal,
		"add":   func(a, b int) int { return a + b },
	}).ParseFS(templateFS, "templates/dashboard.html"),
)

var medals = []string{"🥇", "🥈", "🥉"}

func medal(i int) string {
	if i < len(medals) {
		return medals[i]
	}
	return itoa(i + 1)
}
