package storage

import (
	"testing"
	"time"

	"mailquill/models"
)

func newTestStorage(t *testing.T) *ClientStateStorage {
	t.Helper()
	db, err := InitDB(t.TempDir())
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	s := NewClientStateStorage(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadUnknownClient(t *testing.T) {
	s := newTestStorage(t)

	state, err := s.Load("nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.History) != 0 || state.DarkMode {
		t.Errorf("state = %+v, want zero", state)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	ts := time.Date(2026, 10, 18, 14, 30, 5, 123456789, time.FixedZone("CEST", 2*60*60))
	items := []models.HistoryItem{
		{
			ID:           "b",
			Timestamp:    ts,
			Source:       "Template: Thank You",
			Tone:         "warm",
			Length:       "brief",
			Variations:   2,
			Emails:       []string{"one", "two"},
			SubjectLine:  "Thanks!",
			TemplateName: "Thank You",
			TemplateID:   "thank-you",
		},
		{
			ID:          "a",
			Timestamp:   ts.Add(-time.Hour),
			Source:      "ask about the Q3 budget",
			Tone:        "concise",
			Length:      "brief",
			Variations:  1,
			Emails:      []string{"body"},
			SubjectLine: "No subject",
		},
	}

	if err := s.SaveHistory("client-1", items); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}

	state, err := s.Load("client-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.History) != len(items) {
		t.Fatalf("len = %d", len(state.History))
	}
	for i, got := range state.History {
		want := items[i]
		if !got.Timestamp.Equal(want.Timestamp) {
			t.Errorf("item %d timestamp = %v, want %v", i, got.Timestamp, want.Timestamp)
		}
		got.Timestamp, want.Timestamp = time.Time{}, time.Time{}
		if got.ID != want.ID || got.Source != want.Source || got.TemplateID != want.TemplateID ||
			got.Variations != want.Variations || len(got.Emails) != len(want.Emails) {
			t.Errorf("item %d = %+v, want %+v", i, got, want)
		}
	}

	// Other clients are isolated.
	other, err := s.Load("client-2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(other.History) != 0 {
		t.Errorf("client-2 sees %d entries", len(other.History))
	}
}

func TestSaveEmptyHistory(t *testing.T) {
	s := newTestStorage(t)

	if err := s.SaveHistory("c", []models.HistoryItem{{ID: "x", Emails: []string{"e"}, Variations: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveHistory("c", nil); err != nil {
		t.Fatal(err)
	}
	state, err := s.Load("c")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.History) != 0 {
		t.Errorf("history = %v, want empty", state.History)
	}
}

func TestDarkModeRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	if err := s.SaveDarkMode("c", true); err != nil {
		t.Fatal(err)
	}
	state, err := s.Load("c")
	if err != nil {
		t.Fatal(err)
	}
	if !state.DarkMode {
		t.Error("dark mode not persisted")
	}
}

func TestMalformedValuesFallBackToDefaults(t *testing.T) {
	s := newTestStorage(t)

	if err := s.SaveDarkMode("c", true); err != nil {
		t.Fatal(err)
	}
	if err := s.putRaw("c", HistoryKey, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	state, err := s.Load("c")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.History) != 0 {
		t.Errorf("history = %v, want empty", state.History)
	}
	if !state.DarkMode {
		t.Error("valid dark mode lost because history was malformed")
	}

	if err := s.putRaw("c", DarkModeKey, []byte(`"yes"`)); err != nil {
		t.Fatal(err)
	}
	state, err = s.Load("c")
	if err != nil {
		t.Fatal(err)
	}
	if state.DarkMode {
		t.Error("malformed dark mode should default to false")
	}
}
