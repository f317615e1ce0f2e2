package rag

import "strings"

// promptPreamble constrains the model to the supplied context and tells it
// to admit when the context is insufficient.
const promptPreamble = "You are a helpful assistant specialized in Physical AI & Humanoid Robotics. " +
	"Answer the user's question based ONLY on the provided context. " +
	"If the answer cannot be found in the context, state that you don't have enough information."

// chunkSeparator joins retrieved chunks inside the prompt.
const chunkSeparator = "\n---"

// buildPrompt assembles the final prompt. Caller-selected text, when
// present, appears as a labeled section before the retrieved chunks.
func buildPrompt(question, selectedText string, chunks []string) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\nContext:\n")

	if selectedText != "" {
		b.WriteString("User selected text for context:\n")
		b.WriteString(selectedText)
		b.WriteString("\n\n")
	}
	b.WriteString("Relevant document chunks:\n")
	b.WriteString(strings.Join(chunks, chunkSeparator))

	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
