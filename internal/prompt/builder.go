// Package prompt renders the grounded system prompt that ties an AI reply
// to one property's facts and the live conversation.
package prompt

import (
	"sort"
	"strings"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
)

// recentWindow is how many trailing messages the conversation context keeps.
const recentWindow = 5

const generalInstructions = `[GENERAL INSTRUCTIONS]
1. Be warm, professional and personal in your replies
2. Answer the question precisely using the property information
3. If the information is not available, politely suggest the guest contact the host directly
4. Adapt tone and style to the context of the conversation
5. Avoid generic answers, be specific to this property
6. Include the property name in your reply when relevant
7. Keep your reply to at most 3-4 concise sentences`

// Input is everything the builder needs to produce a prompt.
type Input struct {
	Property           chat.Property
	Messages           []chat.Message
	CustomInstructions string
	IsReservation      bool
}

// Build renders the full grounded prompt. The output is deterministic for a
// given input: map-backed sections are sorted by key, empty fact sections
// are omitted entirely, and missing scalar fields fall back to placeholders.
func Build(in Input) string {
	name := in.Property.Name
	if name == "" {
		name = "this accommodation"
	}
	language := in.Property.Language
	if language == "" {
		language = "fr"
	}

	var b strings.Builder
	b.WriteString("You are the personal virtual assistant of ")
	b.WriteString(name)
	b.WriteString(". You represent the host and must reply in a professional, personal and precise way.\n\n")

	b.WriteString("[PROPERTY]\n")
	b.WriteString("Name: ")
	if in.Property.Name != "" {
		b.WriteString(in.Property.Name)
	} else {
		b.WriteString("Not specified")
	}
	b.WriteString("\nDescription: ")
	b.WriteString(in.Property.Description)
	b.WriteString("\nLanguage: ")
	b.WriteString(language)
	b.WriteString("\n")

	writeFactSection(&b, "AMENITIES", in.Property.Amenities, func(b *strings.Builder, k, v string) {
		b.WriteString("- ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\n")
	})
	writeFactSection(&b, "HOUSE RULES", in.Property.Rules, func(b *strings.Builder, k, v string) {
		b.WriteString("- ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\n")
	})
	writeFactSection(&b, "FAQ", in.Property.FAQ, func(b *strings.Builder, k, v string) {
		b.WriteString("Q: ")
		b.WriteString(k)
		b.WriteString("\nA: ")
		b.WriteString(v)
		b.WriteString("\n")
	})

	b.WriteString("\n[HOST INSTRUCTIONS]\n")
	b.WriteString(in.Property.AIInstructions)
	b.WriteString("\n\n")
	b.WriteString(generalInstructions)
	b.WriteString("\n\n[RECENT CONVERSATION]\n")
	b.WriteString(renderRecent(in.Messages))
	b.WriteString("\n\n[LAST GUEST QUESTION]\n")
	b.WriteString(lastContent(in.Messages))
	b.WriteString("\n\n[CUSTOM INSTRUCTIONS]\n")
	b.WriteString(in.CustomInstructions)
	b.WriteString("\n\n[RESERVATION MODE]\n")
	if in.IsReservation {
		b.WriteString("Active")
	} else {
		b.WriteString("Inactive")
	}
	b.WriteString("\n\n[YOUR REPLY MUST BE]\n")
	b.WriteString("- Personalized for ")
	b.WriteString(name)
	b.WriteString("\n- Directly related to the question asked\n")
	b.WriteString("- Containing specific and useful information\n")
	b.WriteString("- Professional yet warm\n")

	return b.String()
}

func writeFactSection(b *strings.Builder, title string, facts map[string]string, write func(*strings.Builder, string, string)) {
	if len(facts) == 0 {
		return
	}
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("\n[")
	b.WriteString(title)
	b.WriteString("]\n")
	for _, k := range keys {
		write(b, k, facts[k])
	}
}

func renderRecent(messages []chat.Message) string {
	start := len(messages) - recentWindow
	if start < 0 {
		start = 0
	}
	lines := make([]string, 0, recentWindow)
	for _, msg := range messages[start:] {
		label := "HOST"
		if msg.Inbound() {
			label = "GUEST"
		}
		lines = append(lines, label+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func lastContent(messages []chat.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}
