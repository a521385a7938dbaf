package dash

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var pageTemplates map[string]*template.Template

// InitTemplates loads all HTML templates from the templates directory.
// base.html is shared; every other .html file becomes one page.
func InitTemplates(templatesDir string) error {
	pageTemplates = make(map[string]*template.Template)

	titleCaser := cases.Title(language.English)
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"title": titleCaser.String,
	}

	baseTmpl, err := template.New("base").Funcs(funcMap).ParseFiles(
		filepath.Join(templatesDir, "base.html"),
	)
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(templatesDir, "*.html"))
	if err != nil {
		return err
	}

	for _, file := range files {
		name := filepath.Base(file)
		if name == "base.html" {
			continue
		}

		tmpl, err := baseTmpl.Clone()
		if err != nil {
			return err
		}
		if _, err := tmpl.ParseFiles(file); err != nil {
			return err
		}

		pageTemplates[name] = tmpl
		slog.Info("loaded page template", "name", name)
	}

	return nil
}

// RenderTemplate renders a template with the given name and data.
func RenderTemplate(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	tmpl, ok := pageTemplates[name]
	if !ok {
		slog.Error("template not found", "name", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("failed to render template", "name", name, "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
