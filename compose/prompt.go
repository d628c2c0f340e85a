// Package compose turns the user's inputs into prompts for the completion
// service and tidies what comes back.
package compose

import (
	"fmt"
	"strings"

	"mailquill/models"
)

// Request is everything a single generation needs. It is built from the
// editing state when the user clicks generate.
type Request struct {
	Content       string
	Tone          Tone
	Length        Length
	Variations    int
	OriginalEmail string
	Thread        string
	Template      *models.Template
}

// Source is the subject matter sent to the model: the template content when
// a template is selected, the free text otherwise.
func (r Request) Source() string {
	if r.Template != nil {
		return r.Template.Content
	}
	return r.Content
}

// Empty reports whether there is nothing to generate from.
func (r Request) Empty() bool {
	return r.Template == nil && strings.TrimSpace(r.Content) == ""
}

// TemplateSourcePrefix starts the description of a template-based request.
const TemplateSourcePrefix = "Template: "

// Description is what the history list shows for this request.
func (r Request) Description() string {
	if r.Template != nil {
		return TemplateSourcePrefix + r.Template.Name
	}
	return r.Content
}

// EmailPrompt builds the prompt for variation i (1-based) of r.Variations.
func EmailPrompt(r Request, i int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Transform the following into a well-written email with a %s tone. %s", r.Tone, r.Length.Instruction())
	if r.Variations > 1 {
		fmt.Fprintf(&b, "\n\nThis is variation %d of %d. Make this version slightly different in approach or phrasing while maintaining the same core message.", i, r.Variations)
	}

	fmt.Fprintf(&b, "\n\nContent: \"%s\"", r.Source())

	if strings.TrimSpace(r.OriginalEmail) != "" {
		fmt.Fprintf(&b, "\n\nOriginal email being responded to:\n\"%s\"", r.OriginalEmail)
	}
	if strings.TrimSpace(r.Thread) != "" {
		fmt.Fprintf(&b, "\n\nEmail thread context:\n\"%s\"", r.Thread)
	}
	if r.Template != nil {
		fmt.Fprintf(&b, "\n\nUsing template: %s\nTemplate content: \"%s\"", r.Template.Name, r.Template.Content)
	}

	b.WriteString("\n\nPlease respond with ONLY the email body content, no subject line, no additional commentary. The email should be complete and ready to send.")
	return b.String()
}

// SubjectPrompt asks for a single subject line for the request's content.
func SubjectPrompt(r Request) string {
	return fmt.Sprintf(`Generate a clear, compelling email subject line for the following email content. The subject should be professional, specific, and encourage the recipient to open the email. Respond with ONLY the subject line, no quotes or additional text.

Email content: "%s"

Tone: %s`, r.Source(), r.Tone)
}

// CleanSubject trims a model-produced subject and drops one wrapping quote
// character at either end.
func CleanSubject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'") {
		s = s[1:]
	}
	if strings.HasSuffix(s, `"`) || strings.HasSuffix(s, "'") {
		s = s[:len(s)-1]
	}
	return s
}

// ClipboardText is the text placed on the clipboard for a draft.
func ClipboardText(subject, body string) string {
	if subject == "" {
		return body
	}
	return "Subject: " + subject + "\n\n" + body
}
