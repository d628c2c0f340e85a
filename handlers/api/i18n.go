package api

import (
	"mailquill/compose"
	"mailquill/utils"

	"github.com/gofiber/fiber/v2"
)

// I18nHandler handles i18n-related requests
type I18nHandler struct{}

// clientMessages are the message IDs the browser script needs.
var clientMessages = []string{
	"compose_generate",
	"compose_generating",
	"compose_subject_generate",
	"compose_subject_generating",
	"generation_failed",
	"message_copied",
	"message_error",
	"error_network",
	"error_404",
	"error_500",
}

// GetTranslations returns translations for the client-side JavaScript
func (h *I18nHandler) GetTranslations(c *fiber.Ctx) error {
	localizer := utils.GetLocalizer(utils.SupportedLanguage(c.Params("lang")))

	translations := make(map[string]string, len(clientMessages)+2*len(compose.Tones))
	for _, id := range clientMessages {
		translations[id] = utils.T(localizer, id)
	}
	for _, tone := range compose.Tones {
		translations[tone.LabelID()] = utils.T(localizer, tone.LabelID())
		translations[tone.DescriptionID()] = utils.T(localizer, tone.DescriptionID())
	}
	for _, length := range compose.Lengths {
		translations[length.LabelID()] = utils.T(localizer, length.LabelID())
	}

	return c.JSON(translations)
}
