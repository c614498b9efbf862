package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
	"github.com/ericfisherdev/replypilot/internal/domain/port/driven"
)

// DefaultCrisisReply is the pre-approved supportive reply used for mentions
// that match a crisis keyword. It points to the Lifeline Ukraine hotline.
const DefaultCrisisReply = "Чую тебе. Це важливіше ніж будь-який застосунок. " +
	"Лайфлайн Україна: 7333 (безкоштовно, цілодобово). " +
	"Там є люди, які реально можуть допомогти."

// Drafter produces a reply decision for a mention. Implementations never
// fail; every failure path yields a red or skip decision with zero confidence.
type Drafter interface {
	Generate(ctx context.Context, mentionText, authorHandle, parentPostText string) model.GeneratedReply
}

// Compile-time interface satisfaction check.
var _ Drafter = (*ReplyGenerator)(nil)

// ReplyGenerator drafts replies with an LLM behind the crisis and spam
// pre-filters.
type ReplyGenerator struct {
	completer    driven.Completer
	systemPrompt string
	crisisReply  string
}

// NewReplyGenerator creates a ReplyGenerator. The system prompt is rendered
// once from persona. An empty crisisReply selects DefaultCrisisReply.
func NewReplyGenerator(completer driven.Completer, persona model.Persona, crisisReply string) *ReplyGenerator {
	if strings.TrimSpace(crisisReply) == "" {
		crisisReply = DefaultCrisisReply
	}
	return &ReplyGenerator{
		completer:    completer,
		systemPrompt: BuildSystemPrompt(persona),
		crisisReply:  crisisReply,
	}
}

// Generate drafts a reply to mentionText. parentPostText may be empty.
//
// Crisis mentions get the fixed crisis reply and spam gets skipped; neither
// reaches the LLM. An LLM failure, including missing credentials, yields the
// red category so the mention waits for a human.
func (g *ReplyGenerator) Generate(ctx context.Context, mentionText, authorHandle, parentPostText string) model.GeneratedReply {
	if ClassifyCrisis(mentionText) {
		return model.GeneratedReply{
			Reply:      g.crisisReply,
			Confidence: 0,
			Reasoning:  "crisis keywords detected, requires human review",
			Category:   model.CategoryRed,
		}
	}

	if ClassifySpam(mentionText) {
		return model.GeneratedReply{
			Reply:      "",
			Confidence: 0,
			Reasoning:  "spam detected",
			Category:   model.CategorySkip,
		}
	}

	userPrompt := BuildUserPrompt(mentionText, authorHandle, parentPostText)

	raw, err := g.completer.Complete(ctx, g.systemPrompt, userPrompt)
	if err != nil {
		slog.Error("reply generation failed", "author", authorHandle, "error", err)
		return model.GeneratedReply{
			Reply:      "",
			Confidence: 0,
			Reasoning:  "generation error: " + err.Error(),
			Category:   model.CategoryRed,
		}
	}

	generated := ParseCompletion(raw)

	// A reply the sanitizer would change is never auto-sent. The unmodified
	// text is kept so the reviewer sees exactly what the model wrote.
	if _, altered := PlainText(generated.Reply); altered {
		slog.Warn("generated reply contains markup, routing to review", "author", authorHandle)
		generated.Confidence = 0
		generated.Category = model.CategoryRed
		generated.Reasoning = "reply contains markup or angle brackets, requires human review"
	}

	return generated
}
