package model

// Known credential services.
const (
	CredentialServiceThreads = "threads"
	CredentialServiceGroq    = "groq"
)
