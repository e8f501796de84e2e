package entities

// Tone is the voice requested for the drafted summary.
type Tone string

// Supported tones.
const (
	ToneNeutral    Tone = "neutral"
	ToneChallenger Tone = "challenger"
	ToneFriendly   Tone = "friendly"
)

// ValidTones lists the accepted tones in canonical order.
func ValidTones() []Tone {
	return []Tone{ToneNeutral, ToneChallenger, ToneFriendly}
}

// BusinessContext describes what the watching business cares about.
type BusinessContext struct {
	Products []string `json:"products"`
	Keywords []string `json:"keywords"`
	Tone     Tone     `json:"tone"`
}

// DraftPayload is the structured input handed to the text generator.
type DraftPayload struct {
	URL             string           `json:"url"`
	Tone            Tone             `json:"tone"`
	BusinessContext DraftBusinessRef `json:"business_context"`
	Candidates      []Candidate      `json:"candidates"`
}

// DraftBusinessRef is the subset of business context the generator sees.
type DraftBusinessRef struct {
	Keywords []string `json:"keywords"`
	Products []string `json:"products"`
}
