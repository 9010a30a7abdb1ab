package chat

import (
	"strings"

	"github.com/leadline-ai/bot-platform/internal/llm"
	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/internal/retrieval"
)

// historyLimit bounds the conversational context sent to the model:
// the last 20 messages, oldest-first.
const historyLimit = 20

// buildSystemPrompt assembles the bot's system prompt, retrieved
// knowledge, and the lead-capture nudge. The nudge is included only
// while no contact has been captured for this visitor.
func buildSystemPrompt(bot *model.Bot, knowledge []retrieval.Result, contactCaptured bool) string {
	var b strings.Builder

	prompt := bot.SystemPrompt
	if prompt == "" {
		prompt = "You are a helpful assistant answering questions for website visitors."
	}
	b.WriteString(prompt)

	if len(knowledge) > 0 {
		b.WriteString("\n\nUse the following knowledge to answer when relevant:\n")
		for _, r := range knowledge {
			b.WriteString("\n---\n")
			b.WriteString(r.Content)
		}
		b.WriteString("\n---\n")
	}

	if !contactCaptured && bot.LeadCapturePrompt != "" {
		b.WriteString("\n\n")
		b.WriteString(bot.LeadCapturePrompt)
	}

	return b.String()
}

// buildChatMessages converts the bounded history into LLM messages,
// appending the current user message when a stage-4 persistence failure
// kept it out of the stored history.
func buildChatMessages(history []model.Message, userMessage string) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(history)+1)
	for _, msg := range history {
		messages = append(messages, llm.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	if len(messages) == 0 || messages[len(messages)-1].Role != string(model.RoleUser) ||
		messages[len(messages)-1].Content != userMessage {
		messages = append(messages, llm.ChatMessage{
			Role:    string(model.RoleUser),
			Content: userMessage,
		})
	}

	return messages
}

// combineTurnText joins the texts the sentiment lexicon scores.
func combineTurnText(userText, assistantText string) string {
	return userText + "\n" + assistantText
}

// historyText flattens history for purchase-intent keyword matching.
func historyText(history []model.Message, userMessage string) string {
	var b strings.Builder
	for _, msg := range history {
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString(userMessage)
	return b.String()
}
