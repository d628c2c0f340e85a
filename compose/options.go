package compose

import "fmt"

// Tone is the voice the drafted email should use.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneWarm         Tone = "warm"
	ToneConcise      Tone = "concise"
	ToneCasual       Tone = "casual"
	TonePersuasive   Tone = "persuasive"
	ToneEmpathetic   Tone = "empathetic"
)

// Tones lists every supported tone in display order.
var Tones = []Tone{
	ToneProfessional,
	ToneWarm,
	ToneConcise,
	ToneCasual,
	TonePersuasive,
	ToneEmpathetic,
}

// ParseTone validates a tone value.
func ParseTone(s string) (Tone, error) {
	for _, t := range Tones {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tone %q", s)
}

// LabelID is the message ID of the tone's display label.
func (t Tone) LabelID() string { return "tone_" + string(t) }

// DescriptionID is the message ID of the tone's one-line description.
func (t Tone) DescriptionID() string { return "tone_" + string(t) + "_desc" }

// Length controls how long the drafted email should be.
type Length string

const (
	LengthBrief    Length = "brief"
	LengthStandard Length = "standard"
	LengthDetailed Length = "detailed"
)

// Lengths lists every supported length in display order.
var Lengths = []Length{LengthBrief, LengthStandard, LengthDetailed}

var lengthInstructions = map[Length]string{
	LengthBrief:    "Keep it very brief - 2-3 sentences maximum.",
	LengthStandard: "Write a standard length email - 1-2 paragraphs.",
	LengthDetailed: "Write a detailed email - 3 or more paragraphs with comprehensive information.",
}

// ParseLength validates a length value.
func ParseLength(s string) (Length, error) {
	if _, ok := lengthInstructions[Length(s)]; ok {
		return Length(s), nil
	}
	return "", fmt.Errorf("unknown length %q", s)
}

// Instruction is the sentence inserted into the prompt for this length.
func (l Length) Instruction() string { return lengthInstructions[l] }

func (l Length) LabelID() string       { return "length_" + string(l) }
func (l Length) DescriptionID() string { return "length_" + string(l) + "_desc" }

// Variation count bounds offered to the user.
const (
	MinVariations = 1
	MaxVariations = 3
)

// ValidVariations reports whether n drafts may be requested at once.
func ValidVariations(n int) bool {
	return n >= MinVariations && n <= MaxVariations
}
