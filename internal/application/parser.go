package application

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

// Markers of the reply mini-protocol the LLM is instructed to emit.
const (
	markerSkip        = "[SKIP]"
	markerNeedsReview = "[NEEDS_HUMAN_REVIEW]"

	markerConfidencePrefix = "[CONFIDENCE:"

	defaultConfidence = 0.7

	// MaxReplyLength is the hard cap on the length of a reply, in characters.
	MaxReplyLength = 500
)

var confidencePattern = regexp.MustCompile(`\[CONFIDENCE:\s*([^\]]*)\]`)

// ParseCompletion converts raw LLM output into a GeneratedReply.
//
// Lines carrying a marker are dropped whole, including any text sharing the
// line. All other lines form the reply. Missing markers fall back to
// defaults, but [NEEDS_HUMAN_REVIEW] always forces zero confidence and the
// red category regardless of any stated confidence.
func ParseCompletion(raw string) model.GeneratedReply {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	var skip, needsReview bool
	confidence := defaultConfidence
	confidenceSeen := false
	var body []string

	for _, l := range lines {
		if strings.Contains(l, markerSkip) {
			skip = true
		}
		if strings.Contains(l, markerNeedsReview) {
			needsReview = true
		}
		if m := confidencePattern.FindStringSubmatch(l); m != nil && !confidenceSeen {
			confidenceSeen = true
			v, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64)
			if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				confidence = clamp01(v)
			}
		}

		if !isMarkerLine(l) {
			body = append(body, l)
		}
	}

	if skip {
		return model.GeneratedReply{
			Reply:      "",
			Confidence: 0,
			Reasoning:  "model classified as spam/off-topic",
			Category:   model.CategorySkip,
		}
	}

	reply := truncateRunes(strings.TrimSpace(strings.Join(body, " ")), MaxReplyLength)

	if needsReview {
		return model.GeneratedReply{
			Reply:      reply,
			Confidence: 0,
			Reasoning:  "model flagged for human review",
			Category:   model.CategoryRed,
		}
	}

	if reply == "" {
		return model.GeneratedReply{
			Confidence: 0,
			Reasoning:  "model returned no reply text",
			Category:   model.CategoryRed,
		}
	}

	return model.GeneratedReply{
		Reply:      reply,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("model confidence: %.2f", confidence),
		Category:   model.CategoryForConfidence(confidence),
	}
}

// isMarkerLine reports whether l contains any protocol marker.
func isMarkerLine(l string) bool {
	return strings.Contains(l, markerSkip) ||
		strings.Contains(l, markerNeedsReview) ||
		strings.Contains(l, markerConfidencePrefix)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
