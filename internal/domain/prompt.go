package domain

// PromptSet holds the named generation prompts for one category (gender).
// Each entry produces one generated image per run.
type PromptSet struct {
	Gender  string
	Prompts map[string]string
}
