package models

// Preferences holds per-client display settings.
type Preferences struct {
	DarkMode bool `json:"dark_mode"`
}
