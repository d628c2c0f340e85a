package utils

import (
	"strings"
	"testing"
)

func TestRenderPreview(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		notWant []string
	}{
		{
			name: "paragraphs",
			in:   "Hi Sam,\n\nThanks for the update.",
			want: []string{"<p>Hi Sam,</p>", "<p>Thanks for the update.</p>"},
		},
		{
			name: "emphasis kept",
			in:   "This is **important**.",
			want: []string{"<strong>important</strong>"},
		},
		{
			name:    "script removed",
			in:      "Hello <script>alert(1)</script>",
			notWant: []string{"<script"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(RenderPreview(tt.in))
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("RenderPreview(%q) = %q, missing %q", tt.in, got, w)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("RenderPreview(%q) = %q, should not contain %q", tt.in, got, nw)
				}
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<b>bold</b> text", "bold text"},
		{"Q&A <script>alert(1)</script>notes", "Q&A notes"},
		{"Template: Follow-up", "Template: Follow-up"},
		{"5 < 6 & \"quoted\"", "5 < 6 & \"quoted\""},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
