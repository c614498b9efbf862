package model

// LanguageDetect instructs the model to answer in the language of the mention.
const LanguageDetect = "detect"

// Persona describes the voice replies are drafted in. It is built once at
// startup and handed to the reply generator.
type Persona struct {
	Name               string
	Description        string
	Product            string
	ProductDescription string
	Tone               string
	Language           string // LanguageDetect or a fixed language name.
}

// DefaultPersona returns the persona used when nothing is configured.
func DefaultPersona() Persona {
	return Persona{
		Name:        "the account owner",
		Description: "a solo founder",
		Product:     "my product",
		Tone:        "friendly, honest, casual",
		Language:    LanguageDetect,
	}
}
