package webapp

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type dashboardData struct {
	Email       string
	FirstName   string
	LastName    string
	Picture     string
	IdentityID  string
	SessionID   string
	SessionJSON string
}

type hiddenField struct {
	Name  string
	Value string
}

type loginFormData struct {
	Action string
	Method string
	Fields []hiddenField
}

// render buffers the template so a mid-render failure becomes a clean 500
// instead of a half-written page.
func render(w http.ResponseWriter, logger *log.Logger, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Printf("[webapp] render %s: %v", name, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
