package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"nanobanana/internal/domain"
	"nanobanana/internal/i18n"
	"nanobanana/internal/theme"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const themeCookie = "nb_theme"

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// Static serves the embedded stylesheet and script.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

type styleOption struct {
	domain.Style
	Selected bool
	Gradient template.CSS
}

type pageData struct {
	*i18n.Translator
	Theme       theme.Theme
	ThemeCSS    template.CSS
	ThemeNames  []string
	View        sessionView
	Styles      []styleOption
	PreviewURL  template.URL
	ResultURL   template.URL
	Custom      bool
	MaxUploadMB int64
}

func themeCSS(t theme.Theme) template.CSS {
	var b strings.Builder
	fmt.Fprintf(&b, "--bg:%s;--surface:%s;--border:%s;--text:%s;--muted:%s;--accent:%s;--accent-alt:%s;--glow:%s;",
		t.Background, t.Surface, t.Border, t.Text, t.Muted, t.Accent, t.AccentAlt, t.Glow)
	return template.CSS(b.String())
}

// resolveTheme honours ?theme= and remembers it; otherwise the cookie and
// then the configured default apply.
func (a *App) resolveTheme(w http.ResponseWriter, r *http.Request) theme.Theme {
	if q := r.URL.Query().Get("theme"); q != "" {
		if t, ok := theme.Lookup(q); ok {
			http.SetCookie(w, &http.Cookie{Name: themeCookie, Value: t.Name, Path: "/", SameSite: http.SameSiteLaxMode})
			return t
		}
	}
	if c, err := r.Cookie(themeCookie); err == nil {
		return theme.Resolve(c.Value, a.theme)
	}
	return theme.Resolve("", a.theme)
}

// Index renders the studio page for the caller's session.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "missing session")
		return
	}
	st, err := a.svc.View(r.Context(), id)
	if err != nil {
		a.logger(r).Error().Err(err).Msg("load session for page")
		a.error(w, http.StatusInternalServerError, "internal", "session unavailable")
		return
	}

	tr := a.translator(r)
	t := a.resolveTheme(w, r)
	view := newSessionView(st, tr)
	data := pageData{
		Translator:  tr,
		Theme:       t,
		ThemeCSS:    themeCSS(t),
		ThemeNames:  theme.Names(),
		View:        view,
		Custom:      st.Mode == domain.ModeCustom,
		MaxUploadMB: a.intake.MaxBytes() >> 20,
	}
	for _, s := range domain.Styles() {
		data.Styles = append(data.Styles, styleOption{
			Style:    s,
			Selected: s.Name == st.Style,
			Gradient: template.CSS("--from:" + s.From + ";--to:" + s.To),
		})
	}
	if view.Image != nil {
		data.PreviewURL = safeImageURL(view.Image.Preview)
	}
	if view.Result != nil {
		data.ResultURL = safeImageURL(view.Result.DataURL)
	}

	var buf bytes.Buffer
	if err := a.pages.ExecuteTemplate(&buf, "index.html", data); err != nil {
		a.logger(r).Error().Err(err).Msg("render page")
		a.error(w, http.StatusInternalServerError, "internal", "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
