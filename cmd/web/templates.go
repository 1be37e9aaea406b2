package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/myrjola/phq9bot/internal/contexthelpers"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/ui"
)

type BaseTemplateData struct {
	CSRFToken string
}

func newBaseTemplateData(r *http.Request) BaseTemplateData {
	return BaseTemplateData{
		CSRFToken: contexthelpers.CSRFToken(r.Context()),
	}
}

// pageTemplates holds one parsed template set per page.
//
// A page corresponds to a directory inside ui/templates/pages. It has to include a template named "page".
type pageTemplates struct {
	pages map[string]*template.Template
}

func parsePageTemplates() (*pageTemplates, error) {
	dirs, err := fs.ReadDir(ui.Files, "templates/pages")
	if err != nil {
		return nil, errors.Wrap(err, "read pages directory")
	}
	pages := make(map[string]*template.Template, len(dirs))
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		name := dir.Name()
		// We need to initialize the FuncMap before parsing the files. These will be overridden in the render function.
		t, parseErr := template.New(name).Funcs(template.FuncMap{
			"nonce": func() template.HTMLAttr {
				panic("not implemented")
			},
		}).ParseFS(ui.Files, "templates/base.gohtml", fmt.Sprintf("templates/pages/%s/*.gohtml", name))
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "parse page", slog.String("page", name))
		}
		pages[name] = t
	}
	return &pageTemplates{pages: pages}, nil
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var (
		err error
		t   *template.Template
	)

	parsed, ok := app.pages.pages[page]
	if !ok {
		app.serverError(w, r, errors.New("page not found", slog.String("page", page)))
		return
	}
	// Clone so that concurrent requests don't share the nonce function.
	if t, err = parsed.Clone(); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clone template", slog.String("page", page)))
		return
	}

	buf := new(bytes.Buffer)
	nonce := fmt.Sprintf("nonce=\"%s\"", contexthelpers.CSPNonce(r.Context()))
	t.Funcs(template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec // we trust the nonce since it's not provided by user.
		},
	})
	if err = t.ExecuteTemplate(buf, "base", data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute template", slog.String("page", page)))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = buf.WriteTo(w)
}
