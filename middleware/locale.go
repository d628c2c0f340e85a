package middleware

import (
	"mailquill/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var localeMatcher = language.NewMatcher([]language.Tag{language.English, language.Japanese})

// LocaleMiddleware detects and sets the user's locale
func LocaleMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Query parameter, remembered in a cookie
		lang := c.Query("lang")
		if lang != "" {
			lang = utils.SupportedLanguage(lang)
			c.Cookie(&fiber.Cookie{Name: "lang", Value: lang, MaxAge: 365 * 24 * 3600, SameSite: "Lax"})
		}

		// 2. Cookie
		if lang == "" {
			lang = c.Cookies("lang")
		}

		// 3. Accept-Language header
		if lang == "" {
			lang = matchAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
		}

		lang = utils.SupportedLanguage(lang)

		c.Locals("localizer", utils.GetLocalizer(lang))
		c.Locals("lang", lang)

		utils.Log.Debug("Locale detected: %s for path: %s", lang, c.Path())

		return c.Next()
	}
}

func matchAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "en"
	}
	_, index, confidence := localeMatcher.Match(tags...)
	if confidence == language.No {
		return "en"
	}
	if index == 1 {
		return "ja"
	}
	return "en"
}

// Localizer returns the localizer set by LocaleMiddleware.
func Localizer(c *fiber.Ctx) *i18n.Localizer {
	l, _ := c.Locals("localizer").(*i18n.Localizer)
	return l
}

// Lang returns the language set by LocaleMiddleware.
func Lang(c *fiber.Ctx) string {
	if lang, ok := c.Locals("lang").(string); ok {
		return lang
	}
	return "en"
}
