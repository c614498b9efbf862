package model

// GeneratedReply is the outcome of one generation attempt. It is not
// persisted as its own record; its category drives routing.
type GeneratedReply struct {
	Reply      string
	Confidence float64
	Reasoning  string
	Category   Category
}

// CategoryForConfidence derives the routing category from a confidence value.
func CategoryForConfidence(confidence float64) Category {
	switch {
	case confidence < 0.5:
		return CategoryRed
	case confidence < 0.85:
		return CategoryYellow
	default:
		return CategoryGreen
	}
}
