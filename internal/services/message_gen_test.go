package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	text   string
	err    error
	prompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.text, g.err
}

func firstTemplate(n int) int { return 0 }

func TestGenerateUsesModelOutput(t *testing.T) {
	gen := &stubGenerator{text: `"Message: Happy **birthday** Tolu, may your year be full of light! 🎉"`}
	svc := NewMessageService(gen)

	age := 30
	msg := svc.Generate(context.Background(), GiftMessageRequest{
		RecipientName:    "Tolu",
		SenderName:       "Kemi",
		GiftName:         "Confetti Blast",
		Relationship:     "sister",
		Tone:             "playful",
		RecipientAge:     &age,
		RecipientCountry: "Ghana",
	})

	assert.Equal(t, "ai", msg.Source)
	assert.True(t, msg.Success)
	assert.Equal(t, "Happy birthday Tolu, may your year be full of light! 🎉", msg.Message)

	assert.Contains(t, gen.prompt, "from Kemi to Tolu for a Confetti Blast")
	assert.Contains(t, gen.prompt, "The recipient is an adult")
	assert.Contains(t, gen.prompt, "from Ghana")
	assert.Contains(t, gen.prompt, "recipient's sister")
	assert.Contains(t, gen.prompt, "Use a playful tone")
}

func TestGenerateFallsBackToTemplates(t *testing.T) {
	cases := map[string]TextGenerator{
		"no generator": nil,
		"error":        &stubGenerator{err: errors.New("quota exceeded")},
		"too short":    &stubGenerator{text: "Happy birthday!"},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewMessageService(gen)
			svc.pick = firstTemplate

			msg := svc.Generate(context.Background(), GiftMessageRequest{RecipientName: "Tolu"})
			assert.Equal(t, "template", msg.Source)
			assert.True(t, msg.Success)
			assert.Contains(t, msg.Message, "Tolu")
		})
	}
}

func TestCleanGeneratedMessage(t *testing.T) {
	assert.Equal(t, "Happy birthday friend!", CleanGeneratedMessage("  Here's a message:  \"Happy   birthday _friend_!\" "))
	assert.Equal(t, "Cake time", CleanGeneratedMessage("`Cake` *time*"))

	long := CleanGeneratedMessage(strings.Repeat("word ", 100))
	assert.Equal(t, maxGiftMessageLen, utf8.RuneCountInString(long))
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestTemplateMessages(t *testing.T) {
	all := TemplateMessages("", nil, "", "")
	assert.Len(t, all, len(messageTemplates))
	assert.Contains(t, all[0], "friend")

	fun := TemplateMessages("Ife", nil, "", TemplateFun)
	assert.Len(t, fun, 5)

	senior := 70
	assert.Len(t, TemplateMessages("Ife", &senior, "", TemplateFun), 3)

	child := 8
	assert.Len(t, TemplateMessages("Ife", &child, "", ""), len(messageTemplates)-2)

	assert.Len(t, TemplateMessages("Ife", nil, "egypt", TemplateFun), 4)

	assert.Len(t, TemplateMessages("Ife", nil, "", "unknown"), len(messageTemplates), "unknown categories fall back to everything")
}

func TestTemplateGroups(t *testing.T) {
	assert.Equal(t, "", ageGroup(nil))
	for age, want := range map[int]string{5: "children", 15: "teens", 22: "young_adults", 40: "adults", 80: "seniors"} {
		assert.Equal(t, want, ageGroup(&age))
	}
	assert.Equal(t, "african", cultureGroup("nigeria"))
	assert.Equal(t, "universal", cultureGroup("Atlantis"))
	assert.Equal(t, "", cultureGroup(" "))

	assert.True(t, IsTemplateCategory(TemplateShort))
	assert.False(t, IsTemplateCategory("spicy"))
}

func TestGeminiClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		if r.URL.Query().Get("key") != "k-123" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
			return
		}

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "write something", req.Contents[0].Parts[0].Text)
		assert.Equal(t, 200, req.GenerationConfig.MaxOutputTokens)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Happy birthday!"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("k-123", "gemini-test")
	c.baseURL = srv.URL
	text, err := c.Generate(context.Background(), "write something")
	require.NoError(t, err)
	assert.Equal(t, "Happy birthday!", text)

	bad := NewGeminiClient("wrong", "gemini-test")
	bad.baseURL = srv.URL
	_, err = bad.Generate(context.Background(), "write something")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}
