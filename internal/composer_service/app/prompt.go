package app

import (
	"fmt"
	"strings"
)

const promptTemplate = `Create a professional and friendly %s greeting for %s suitable for sending via email and SMS.

- Generate a subject line for the email.
- Write a full email greeting message in plain text.
- Write a short SMS greeting message (under 160 characters).
- Write an HTML card version of the greeting (with a nice layout, suitable for email, using inline CSS, and including the sender "%s" at the bottom).

Respond with a single JSON object with exactly these string keys:
{"subject": "...", "email": "...", "sms": "...", "html_card": "..."}
Ensure the output is strict JSON (no trailing commas, use double quotes, no comments, no markdown).`

// BuildPrompt renders the greeting prompt for one recipient.
func BuildPrompt(recipientName, occasionLabel, senderSignature string) string {
	return fmt.Sprintf(promptTemplate,
		strings.TrimSpace(occasionLabel),
		strings.TrimSpace(recipientName),
		strings.TrimSpace(senderSignature),
	)
}
