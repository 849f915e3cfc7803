package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
)

func guestMsg(content string, at time.Time) chat.Message {
	return chat.Message{ID: content, ConversationID: "c1", Direction: chat.DirectionInbound, Content: content, CreatedAt: at}
}

func hostMsg(content string, at time.Time) chat.Message {
	return chat.Message{ID: content, ConversationID: "c1", Direction: chat.DirectionOutbound, Content: content, CreatedAt: at}
}

func TestBuildSectionOrder(t *testing.T) {
	out := Build(Input{
		Property: chat.Property{
			Name:        "Villa Azur",
			Description: "Seaside villa",
			Amenities:   map[string]string{"wifi": "fiber"},
			Rules:       map[string]string{"smoking": "not allowed"},
			FAQ:         map[string]string{"checkout": "11am"},
		},
		Messages: []chat.Message{guestMsg("Is breakfast included?", time.Now())},
	})

	sections := []string{
		"[PROPERTY]",
		"[AMENITIES]",
		"[HOUSE RULES]",
		"[FAQ]",
		"[HOST INSTRUCTIONS]",
		"[GENERAL INSTRUCTIONS]",
		"[RECENT CONVERSATION]",
		"[LAST GUEST QUESTION]",
		"[CUSTOM INSTRUCTIONS]",
		"[RESERVATION MODE]",
		"[YOUR REPLY MUST BE]",
	}
	prev := -1
	for _, section := range sections {
		idx := strings.Index(out, section)
		require.GreaterOrEqual(t, idx, 0, "missing section %s", section)
		assert.Greater(t, idx, prev, "section %s out of order", section)
		prev = idx
	}
}

func TestBuildIsolatesLastQuestionAndContext(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msgs := []chat.Message{
		guestMsg("old question", base),
		hostMsg("old answer", base.Add(time.Minute)),
		guestMsg("Hello", base.Add(2*time.Minute)),
		hostMsg("Hi there", base.Add(3*time.Minute)),
		guestMsg("Parking?", base.Add(4*time.Minute)),
		hostMsg("Yes, free parking", base.Add(5*time.Minute)),
		guestMsg("Is breakfast included?", base.Add(6*time.Minute)),
	}

	out := Build(Input{
		Property: chat.Property{Name: "Villa Azur", FAQ: map[string]string{"breakfast": "included"}},
		Messages: msgs,
	})

	assert.Contains(t, out, "Q: breakfast\nA: included")
	assert.Contains(t, out, "[LAST GUEST QUESTION]\nIs breakfast included?")

	// Context window carries exactly the last 5 messages with role labels.
	context := section(t, out, "[RECENT CONVERSATION]")
	assert.NotContains(t, context, "old question")
	assert.NotContains(t, context, "old answer")
	assert.Contains(t, context, "GUEST: Hello")
	assert.Contains(t, context, "HOST: Yes, free parking")
	assert.Contains(t, context, "GUEST: Is breakfast included?")
}

func TestBuildOmitsEmptyFactSections(t *testing.T) {
	out := Build(Input{Property: chat.Property{Name: "Villa Azur"}})

	assert.NotContains(t, out, "[AMENITIES]")
	assert.NotContains(t, out, "[HOUSE RULES]")
	assert.NotContains(t, out, "[FAQ]")
}

func TestBuildPlaceholdersForMissingFields(t *testing.T) {
	out := Build(Input{})

	assert.Contains(t, out, "You are the personal virtual assistant of this accommodation.")
	assert.Contains(t, out, "Name: Not specified")
	assert.Contains(t, out, "Language: fr")
	assert.Contains(t, out, "[LAST GUEST QUESTION]\n\n")
	assert.Contains(t, out, "[RESERVATION MODE]\nInactive")
}

func TestBuildReservationModeActive(t *testing.T) {
	out := Build(Input{IsReservation: true})
	assert.Contains(t, out, "[RESERVATION MODE]\nActive")
}

func TestBuildSortsFactKeys(t *testing.T) {
	out := Build(Input{Property: chat.Property{
		Name:      "Villa Azur",
		Amenities: map[string]string{"wifi": "fiber", "ac": "yes", "parking": "free"},
	}})

	sectionText := section(t, out, "[AMENITIES]")
	ac := strings.Index(sectionText, "- ac: yes")
	parking := strings.Index(sectionText, "- parking: free")
	wifi := strings.Index(sectionText, "- wifi: fiber")
	require.True(t, ac >= 0 && parking >= 0 && wifi >= 0)
	assert.True(t, ac < parking && parking < wifi)
}

func TestBuildDeterministic(t *testing.T) {
	in := Input{
		Property: chat.Property{
			Name:      "Villa Azur",
			Amenities: map[string]string{"wifi": "fiber", "ac": "yes", "pool": "heated", "parking": "free"},
			FAQ:       map[string]string{"checkin": "3pm", "checkout": "11am"},
		},
		Messages:           []chat.Message{guestMsg("hi", time.Now())},
		CustomInstructions: "Reply in French",
		IsReservation:      true,
	}

	first := Build(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Build(in))
	}
}

// section extracts the text between a section header and the next header.
func section(t *testing.T, out, header string) string {
	t.Helper()
	idx := strings.Index(out, header)
	require.GreaterOrEqual(t, idx, 0)
	rest := out[idx+len(header):]
	if next := strings.Index(rest, "\n["); next >= 0 {
		rest = rest[:next]
	}
	return rest
}
