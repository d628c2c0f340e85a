package utils

import (
	"fmt"
	"io/fs"
	"sync"

	"mailquill/locales"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var (
	// Bundle is the global translation bundle
	Bundle *i18n.Bundle
	// Localizer is the default localizer
	Localizer *i18n.Localizer

	i18nOnce sync.Once
	i18nErr  error
)

// InitI18n loads the embedded message catalogs. Safe to call more than once.
func InitI18n() error {
	i18nOnce.Do(func() {
		Bundle = i18n.NewBundle(language.English)
		Bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

		for _, lang := range locales.Supported {
			name := fmt.Sprintf("active.%s.toml", lang)
			data, err := fs.ReadFile(locales.FS, name)
			if err != nil {
				i18nErr = fmt.Errorf("reading %s: %w", name, err)
				return
			}
			if _, err := Bundle.ParseMessageFileBytes(data, name); err != nil {
				i18nErr = fmt.Errorf("parsing %s: %w", name, err)
				return
			}
		}

		Localizer = i18n.NewLocalizer(Bundle, language.English.String())
		Log.Info("i18n system initialized (%d languages)", len(locales.Supported))
	})
	return i18nErr
}

// SupportedLanguage returns lang if a catalog exists for it, otherwise "en".
func SupportedLanguage(lang string) string {
	for _, l := range locales.Supported {
		if l == lang {
			return lang
		}
	}
	return locales.Supported[0]
}

// GetLocalizer returns a localizer for the specified language
func GetLocalizer(lang string) *i18n.Localizer {
	return i18n.NewLocalizer(Bundle, SupportedLanguage(lang))
}

// T translates a message ID
func T(localizer *i18n.Localizer, messageID string) string {
	if localizer == nil {
		localizer = Localizer
	}
	if localizer == nil {
		return messageID
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID: messageID,
	})
	if err != nil {
		Log.Debug("Translation error for '%s': %v", messageID, err)
		return messageID
	}
	return msg
}

// TPlural translates a message ID with plural support
func TPlural(localizer *i18n.Localizer, messageID string, count int) string {
	if localizer == nil {
		localizer = Localizer
	}
	if localizer == nil {
		return messageID
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:   messageID,
		PluralCount: count,
		TemplateData: map[string]interface{}{
			"Count": count,
		},
	})
	if err != nil {
		Log.Debug("Translation error for '%s': %v", messageID, err)
		return messageID
	}
	return msg
}
