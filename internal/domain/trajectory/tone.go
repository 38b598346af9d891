package trajectory

// Tone is the display class of a grade cell.
type Tone string

const (
	ToneEmpty   Tone = "empty"
	TonePending Tone = "pending"
	TonePassing Tone = "passing"
	ToneOther   Tone = "other"
)

// ToneOf classifies a grade for display: in-progress markers are pending,
// 7..10 is passing.
func ToneOf(g Grade) Tone {
	switch g.Kind() {
	case GradeEmpty:
		return ToneEmpty
	case GradeInProgress:
		return TonePending
	case GradePassing:
		return TonePassing
	default:
		return ToneOther
	}
}
