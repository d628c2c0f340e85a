package models

import "time"

// HistoryItem is a completed generation. It is never modified after creation.
type HistoryItem struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"` // raw thoughts, or "Template: <name>"
	Tone         string    `json:"tone"`
	Length       string    `json:"length"`
	Variations   int       `json:"variations"`
	Emails       []string  `json:"emails"`
	SubjectLine  string    `json:"subject_line"`
	TemplateName string    `json:"template_name,omitempty"`
	TemplateID   string    `json:"template_id,omitempty"`
}
