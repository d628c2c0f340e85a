package models

// Template is a pre-written email skeleton the user can pick instead of
// typing free text.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Content     string `json:"content"`
}
