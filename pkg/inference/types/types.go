package types

import "strings"

// StoryRequest is the payload of a default-route WebSocket message.
type StoryRequest struct {
	StoryType string `json:"storyType"`
}

// Prompt renders the Claude text-completion prompt for one story request.
func Prompt(storyType string) string {
	return "\n\nHuman: Tell me a very short story about: " + strings.TrimSpace(storyType) + "\n\nAssistant:"
}

// UserPrompt renders the plain instruction used by chat-shaped backends.
func UserPrompt(storyType string) string {
	return "Tell me a very short story about: " + strings.TrimSpace(storyType)
}

// StopSequences are the sequences that terminate story generation.
func StopSequences() []string {
	return []string{"\n\nHuman:"}
}
