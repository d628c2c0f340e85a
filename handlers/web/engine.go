package web

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"mailquill/utils"
	"mailquill/views"

	"github.com/gofiber/template/html/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// NewEngine builds the template engine over the embedded views.
func NewEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(views.FS), ".html")

	// String manipulation functions
	engine.AddFunc("lower", strings.ToLower)
	engine.AddFunc("trim", strings.TrimSpace)
	engine.AddFunc("truncate", truncate)
	engine.AddFunc("plain", utils.StripHTML)
	engine.AddFunc("add", func(a, b int) int { return a + b })

	// i18n template functions
	engine.AddFunc("t", func(localizer *i18n.Localizer, messageID string) string {
		return utils.T(localizer, messageID)
	})
	engine.AddFunc("tPlural", func(localizer *i18n.Localizer, messageID string, count int) string {
		return utils.TPlural(localizer, messageID, count)
	})

	// Drafts are shown as sanitized HTML
	engine.AddFunc("preview", utils.RenderPreview)

	engine.AddFunc("formatDate", func(t time.Time) string {
		return t.Local().Format("Jan 02, 2006 15:04")
	})

	return engine
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
