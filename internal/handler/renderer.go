// Package handler contains the HTTP glue shared by the storefront and admin
// surfaces: template rendering, form decoding and error responses.
package handler

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"

	"github.com/rhobart/minimart/internal/domain"
)

// Renderer manages template parsing and rendering with isolated template sets
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses the layout plus every page under templatesDir. Pages in
// the admin/ subdirectory are keyed "admin/<name>" and share the admin
// layout.
func NewRenderer(templatesDir string) (*Renderer, error) {
	templates := make(map[string]*template.Template)

	baseTmpl, err := template.New("base").Funcs(templateFuncs()).ParseFiles(filepath.Join(templatesDir, "layout.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	adminBaseTmpl, err := template.New("admin_base").Funcs(templateFuncs()).ParseFiles(filepath.Join(templatesDir, "admin", "layout.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin layout: %w", err)
	}

	if err := addPages(templates, baseTmpl, templatesDir, ""); err != nil {
		return nil, err
	}
	if err := addPages(templates, adminBaseTmpl, filepath.Join(templatesDir, "admin"), "admin/"); err != nil {
		return nil, err
	}

	return &Renderer{templates: templates}, nil
}

func addPages(templates map[string]*template.Template, base *template.Template, dir, keyPrefix string) error {
	pages, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return fmt.Errorf("failed to glob templates: %w", err)
	}

	for _, page := range pages {
		if filepath.Base(page) == "layout.html" {
			continue
		}

		pageTmpl, err := base.Clone()
		if err != nil {
			return fmt.Errorf("failed to clone template for %s: %w", page, err)
		}
		pageTmpl, err = pageTmpl.ParseFiles(page)
		if err != nil {
			return fmt.Errorf("failed to parse page %s: %w", page, err)
		}

		name := filepath.Base(page)
		name = name[:len(name)-len(filepath.Ext(name))]
		templates[keyPrefix+name] = pageTmpl
	}
	return nil
}

// Render writes the named page to w.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderHTTP renders a page, falling back to a 500 if execution fails.
func (r *Renderer) RenderHTTP(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := r.Render(w, name, data); err != nil {
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(d interface{ StringFixed(int32) string }) string {
			return "$" + d.StringFixed(2)
		},
		"statusLabel": func(s domain.OrderStatus) string {
			if s == domain.OrderStatusCashOnDelivery {
				return "Cash on Delivery"
			}
			return string(s)
		},
	}
}
