// Package web embeds the HTML templates and static assets of the editor UI.
package web

import "embed"

// TemplatesFS holds index.html (full page) and rows.html (table body partial).
//
//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
