package web

import "embed"

// TemplatesFS embeds the dashboard page and its htmx partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet; htmx itself is loaded from a CDN.
//
//go:embed static/*.css
var StaticFS embed.FS
