package compose

import "mailquill/models"

var catalog = []models.Template{
	{
		ID:          "follow-up",
		Name:        "Follow-up",
		Category:    "Business",
		Description: "Following up on previous conversations",
		Content:     "I wanted to follow up on our previous conversation about [topic]. I'm reaching out to see if you've had a chance to consider [specific ask] and if there's any additional information you need from me.",
	},
	{
		ID:          "introduction",
		Name:        "Introduction",
		Category:    "Networking",
		Description: "Introducing yourself or others",
		Content:     "I hope this email finds you well. I'm [your name] from [company/position], and I wanted to reach out to introduce myself and explore potential opportunities for [collaboration/partnership/connection].",
	},
	{
		ID:          "meeting-request",
		Name:        "Meeting Request",
		Category:    "Business",
		Description: "Requesting meetings or calls",
		Content:     "I would like to schedule a meeting to discuss [topic]. Would you be available for a [duration] call sometime next week? I'm flexible with timing and can accommodate your schedule.",
	},
	{
		ID:          "thank-you",
		Name:        "Thank You",
		Category:    "Courtesy",
		Description: "Expressing gratitude",
		Content:     "Thank you for [specific action/help/time]. Your [assistance/insights/support] was invaluable and helped [specific outcome]. I truly appreciate you taking the time to [specific action].",
	},
	{
		ID:          "project-update",
		Name:        "Project Update",
		Category:    "Business",
		Description: "Sharing project progress",
		Content:     "I wanted to provide an update on the [project name]. We've made significant progress on [specific areas] and are currently [current status]. The next steps include [upcoming tasks] with an expected completion date of [timeline].",
	},
	{
		ID:          "apology",
		Name:        "Apology",
		Category:    "Courtesy",
		Description: "Professional apologies",
		Content:     "I apologize for [specific issue]. I understand this may have caused [impact] and I take full responsibility. To remedy this situation, I will [specific actions] and ensure this doesn't happen again.",
	},
}

// Templates returns a copy of the template catalog.
func Templates() []models.Template {
	out := make([]models.Template, len(catalog))
	copy(out, catalog)
	return out
}

// TemplateByID finds a template by its stable identifier.
func TemplateByID(id string) (models.Template, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return models.Template{}, false
}

// TemplateByName finds a template by display name. Only used for history
// entries recorded without a template ID.
func TemplateByName(name string) (models.Template, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return models.Template{}, false
}
