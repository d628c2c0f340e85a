// Package history holds the pure operations on a client's generation history.
// Lists are ordered most recent first and are never modified in place.
package history

import (
	"strings"

	"mailquill/models"
)

// AllTones is the filter value that matches every tone.
const AllTones = "all"

// Prepend returns a new list with item at the front. When max is positive the
// oldest entries beyond max are dropped.
func Prepend(list []models.HistoryItem, item models.HistoryItem, max int) []models.HistoryItem {
	out := make([]models.HistoryItem, 0, len(list)+1)
	out = append(out, item)
	out = append(out, list...)
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// Remove returns list without the entry whose ID is id. Removing an unknown
// ID returns an equal list.
func Remove(list []models.HistoryItem, id string) []models.HistoryItem {
	out := make([]models.HistoryItem, 0, len(list))
	for _, item := range list {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// Find returns the entry with the given ID.
func Find(list []models.HistoryItem, id string) (models.HistoryItem, bool) {
	for _, item := range list {
		if item.ID == id {
			return item, true
		}
	}
	return models.HistoryItem{}, false
}

// Search returns the entries whose source or subject line contains query,
// ignoring case, restricted to tone unless tone is AllTones or empty.
func Search(list []models.HistoryItem, query, tone string) []models.HistoryItem {
	q := strings.ToLower(query)
	out := []models.HistoryItem{}
	for _, item := range list {
		if tone != "" && tone != AllTones && item.Tone != tone {
			continue
		}
		if strings.Contains(strings.ToLower(item.Source), q) ||
			strings.Contains(strings.ToLower(item.SubjectLine), q) {
			out = append(out, item)
		}
	}
	return out
}
