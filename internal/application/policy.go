package application

// ShouldAutoSend decides whether a drafted reply may be dispatched without a
// human. Learning mode always requires approval. Callers must exclude the red
// category before consulting this function.
func ShouldAutoSend(confidence, threshold float64, learningMode bool) bool {
	if learningMode {
		return false
	}
	return confidence >= threshold
}
