package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

//go:embed templates/*.html static/*
var assets embed.FS

// templateData is the single view model handed to every page.
type templateData struct {
	User        *user
	CSRFToken   string
	Notice      string
	Form        any
	Errors      map[string][]string
	Page        *taskPage
	Query       taskQuery
	Task        *task
	Status      int
	Message     string
	CurrentYear int
}

// FieldError returns the first validation message for key.
func (d *templateData) FieldError(key string) string {
	if len(d.Errors[key]) == 0 {
		return ""
	}
	return d.Errors[key][0]
}

func (app *application) newTemplateData(r *http.Request) *templateData {
	return &templateData{
		User:        getUserFromRequest(r),
		CSRFToken:   getCSRFToken(r),
		CurrentYear: time.Now().Year(),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}

// pageURL builds the index link for page n keeping the active filters.
func pageURL(q taskQuery, n int) string {
	v := url.Values{}
	if q.Status != statusAny {
		v.Set("status", string(q.Status))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	v.Set("page", strconv.Itoa(n))
	return "/tasks?" + v.Encode()
}

var functions = template.FuncMap{
	"formatDate": formatDate,
	"formatTime": formatTime,
	"pageURL":    pageURL,
	"add":        func(a, b int) int { return a + b },
}

func newTemplateCache() (map[string]*template.Template, error) {
	cache := map[string]*template.Template{}

	pages, err := fs.Glob(assets, "templates/*.html")
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		name := path.Base(page)
		if name == "base.html" {
			continue
		}
		ts, err := template.New(name).Funcs(functions).ParseFS(assets, "templates/base.html", page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		cache[name] = ts
	}
	return cache, nil
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data *templateData) {
	ts, ok := app.templates[page]
	if !ok {
		app.requestLogger(r).Errorf("the template %s does not exist", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	err := ts.ExecuteTemplate(buf, "base", data)
	if err != nil {
		app.requestLogger(r).WithError(err).Error("template execution failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (app *application) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := app.newTemplateData(r)
	data.Status = status
	data.Message = message
	app.render(w, r, status, "error.html", data)
}
