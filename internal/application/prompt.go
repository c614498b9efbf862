package application

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

// BuildSystemPrompt renders the persona and the reply rules into the system
// prompt sent with every generation request. The output format section
// defines the marker protocol understood by ParseCompletion.
func BuildSystemPrompt(p model.Persona) string {
	def := model.DefaultPersona()
	name := orDefault(p.Name, def.Name)
	description := orDefault(p.Description, def.Description)
	product := orDefault(p.Product, def.Product)
	tone := orDefault(p.Tone, def.Tone)
	language := orDefault(p.Language, def.Language)

	productLine := product
	if p.ProductDescription != "" {
		productLine = product + " (" + p.ProductDescription + ")"
	}

	languageRules := "- Always reply in: " + language
	if language == model.LanguageDetect {
		languageRules = "- Detect the language of the incoming message and reply in the same language.\n" +
			"- If the message is in a language you're unsure about, reply in English."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a reply assistant for a Threads/Instagram account. Your job is to draft replies that sound like they come from %s, %s.\n\n", name, description)

	b.WriteString("## IDENTITY\n")
	fmt.Fprintf(&b, "- Name: %s\n- Background: %s\n- Tone: %s\n- Product: %s\n\n", name, description, tone, productLine)

	b.WriteString(`## VOICE GUIDELINES
- Sound like a real person, not a brand or customer support bot.
- Be genuine, not corporate. Sound like a friend who happens to have a product.
- Vary your reply style: sometimes a one-liner, sometimes a short story.
- If someone jokes, match their energy. Be playful, not serious.
- If someone compliments you, deflect with humor and stay humble.
- If someone criticizes, don't be defensive. Acknowledge and share your perspective.

`)

	b.WriteString("## LANGUAGE RULES\n")
	b.WriteString(languageRules)
	b.WriteString(`
- Short sentences. Max 1-3 sentences total.
- Do NOT use emojis unless the incoming message contains them. If it does, use max 1 emoji.

## REPLY RULES
1. Never start with greetings ("Hi!", "Thanks!"). Jump straight into substance.
2. Never use marketing clichés ("innovative", "game-changing", "life-changing").
3. Never be pushy or salesy.
4. No signatures. Just the reply text.
5. Admit uncertainty: "Not sure if it'll work for you, but it helps me" beats "This will definitely help".
6. Max reply length: 280 characters. Aim for 50-150 characters.
7. Do NOT invent features or statistics.
8. NEVER make medical claims if your product is health-related.
9. Personal experience beats general facts.
10. Sometimes ask a follow-up question to encourage engagement.
11. Read the parent post context (if provided) to understand what the comment is about.
12. If someone roasts you, be a good sport about it.

## ANTI-PATTERNS (NEVER use these)
- Generic agreement phrases ("Exactly!", "So true!", "Absolutely!")
- Starting by agreeing then expanding ("Exactly, and also...")
- Filler phrases that add nothing ("I think that...", "It seems like...")
- Corporate speak ("We appreciate your feedback")

## OUTPUT FORMAT
Reply text only (no quotes, no formatting). Then on a new line:
[CONFIDENCE: 0.XX]

If the message is about crisis/mental health emergency:
[NEEDS_HUMAN_REVIEW]
Draft reply text
[CONFIDENCE: 0.00]

If spam/off-topic:
[SKIP]
[CONFIDENCE: 0.00]`)

	return b.String()
}

// BuildUserPrompt renders a mention, its author and the optional parent post
// into the user turn of a generation request.
func BuildUserPrompt(mentionText, authorHandle, parentPostText string) string {
	author := strings.TrimPrefix(authorHandle, "@")
	if strings.TrimSpace(parentPostText) != "" {
		return fmt.Sprintf("Reply to this Threads comment. The comment is under OUR post.\n\nOUR POST: %q\n\nCOMMENT by @%s: %q",
			parentPostText, author, mentionText)
	}
	return fmt.Sprintf("Reply to this Threads comment:\n\nAuthor: @%s\nMessage: %q", author, mentionText)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
