package httpserver

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/flash"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
)

const layoutFile = "layout.html"

// Renderer executes one page template wrapped in the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

// NewRenderer parses every templates/*.html page of fsys together with the layout.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: map[string]*template.Template{}}
	for _, f := range files {
		name := path.Base(f)
		if name == layoutFile {
			continue
		}
		t, err := template.New(name).Funcs(funcs).ParseFS(fsys, "templates/"+layoutFile, f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	if len(r.pages) == 0 {
		return nil, errors.New("no templates found")
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// View adds the per-request values every page needs.
type View struct {
	Flash *flash.Store
}

func (v *View) Render(c echo.Context, code int, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	data["Identity"] = authmw.IdentityFrom(c)
	data["Flashes"] = v.Flash.Pop(c)
	token, _ := c.Get(csrfContextKey).(string)
	data["CSRF"] = token
	if _, ok := data["Query"]; !ok {
		data["Query"] = ""
	}
	return c.Render(code, name, data)
}

// Redirect flashes msg and answers 303 See Other.
func (v *View) Redirect(c echo.Context, category, msg, to string) error {
	if msg != "" {
		v.Flash.Add(c, category, msg)
	}
	return c.Redirect(http.StatusSeeOther, to)
}

var sentinels = []error{
	service.ErrAuthentication,
	service.ErrAuthorization,
	service.ErrConflict,
	service.ErrNotFound,
	service.ErrValidation,
	service.ErrPermission,
}

// userMessage strips the sentinel prefix from a service error.
func userMessage(err error) string {
	msg := err.Error()
	for _, s := range sentinels {
		if errors.Is(err, s) {
			msg = strings.TrimPrefix(msg, s.Error()+": ")
			break
		}
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
