package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/questionnaire"
)

const classificationPrompt = `You are a compassionate mental health assistant helping assess depression symptoms.
Classify how often the user has experienced what the question asks about as one of the following:
"Not at all", "Several days", "More than half the days", or "Nearly every day".
Only output the matching phrase exactly.

Question: %q
Answer: %q`

// Classify maps the answer to a PHQ-9 frequency label. The label is returned as the model wrote it apart from
// surrounding whitespace, so it may be non-canonical and then scores zero.
func (c *Client) Classify(ctx context.Context, question, response string) (questionnaire.Label, error) {
	text, err := c.complete(ctx, "classify", userMessage(fmt.Sprintf(classificationPrompt, question, response)))
	if err != nil {
		return "", errors.Wrap(err, "classify")
	}
	return questionnaire.Label(strings.TrimSpace(text)), nil
}

const empathyPrompt = `You are a kind and gentle professional. After reading this question:
%q
And hearing this answer:
%q
Write a short, empathetic one-sentence reply that validates and gently reflects on what they shared. Be brief and caring.`

// Empathize writes one sentence reflecting the answer back to the user.
func (c *Client) Empathize(ctx context.Context, question, response string) (string, error) {
	text, err := c.complete(ctx, "empathize", userMessage(fmt.Sprintf(empathyPrompt, question, response)))
	if err != nil {
		return "", errors.Wrap(err, "empathize")
	}
	return text, nil
}

const summaryPrompt = `The user shared these feelings:
%s

Their total PHQ-9 score is %d.
Severity bands: 0-4 Minimal, 5-9 Mild, 10-14 Moderate, 15-19 Moderately severe, 20-27 Severe.
Based on this score and their descriptions, generate a short, warm, emotionally supportive paragraph.
Start by stating the depression severity clearly (e.g., "Depression severity: Moderately severe").
Then write a kind message that reflects understanding and reassurance based on the user's emotional experience.
Important: Keep it under 100 words.`

// Summarize writes the closing message starting with the severity statement.
func (c *Client) Summarize(ctx context.Context, transcript string, score int) (string, error) {
	text, err := c.complete(ctx, "summarize", userMessage(fmt.Sprintf(summaryPrompt, transcript, score)))
	if err != nil {
		return "", errors.Wrap(err, "summarize")
	}
	return text, nil
}

const chatSystemPrompt = "You are a friendly mental health assistant. " +
	"If the user seems sad, anxious, or overwhelmed, gently guide them through a PHQ-9 assessment. " +
	"Otherwise, chat naturally like a supportive friend."

// Chat answers small talk before a screening has started. The reply may offer the screening.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	text, err := c.complete(ctx, "chat", systemMessage(chatSystemPrompt), userMessage(message))
	if err != nil {
		return "", errors.Wrap(err, "chat")
	}
	return text, nil
}
