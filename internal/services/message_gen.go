package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	geminiBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	maxGiftMessageLen   = 200
	minGiftMessageWords = 5
)

// GiftMessageRequest describes the gift a message is being written for
type GiftMessageRequest struct {
	RecipientName    string `json:"recipient_name"`
	SenderName       string `json:"sender_name"`
	GiftName         string `json:"gift_name"`
	GiftType         string `json:"gift_type,omitempty"`
	Relationship     string `json:"relationship,omitempty"`
	Tone             string `json:"tone,omitempty"`
	RecipientAge     *int   `json:"recipient_age,omitempty"`
	RecipientCountry string `json:"recipient_country,omitempty"`
}

// GiftMessage is a generated message and where it came from
type GiftMessage struct {
	Message string `json:"message"`
	Source  string `json:"source"`
	Success bool   `json:"success"`
}

// TextGenerator produces free text from a prompt
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient calls the Gemini generateContent REST endpoint
type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGeminiClient creates a Gemini client for the given model
func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{
		baseURL: geminiBaseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
		TopP            float64 `json:"topP"`
		TopK            int     `json:"topK"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate implements TextGenerator
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	var body geminiRequest
	body.Contents = []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}
	body.GenerationConfig.Temperature = 0.8
	body.GenerationConfig.MaxOutputTokens = 200
	body.GenerationConfig.TopP = 0.95
	body.GenerationConfig.TopK = 40

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("invalid gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("gemini returned %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("gemini returned %d", resp.StatusCode)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// MessageService writes personal gift messages, falling back to templates
// whenever the generator is missing or fails.
type MessageService struct {
	generator TextGenerator
	pick      func(n int) int
}

// NewMessageService creates a message service. generator may be nil.
func NewMessageService(generator TextGenerator) *MessageService {
	return &MessageService{
		generator: generator,
		pick:      rand.IntN,
	}
}

// Generate returns a message for the gift, never failing
func (s *MessageService) Generate(ctx context.Context, req GiftMessageRequest) *GiftMessage {
	templates := TemplateMessages(req.RecipientName, req.RecipientAge, req.RecipientCountry, "")
	fallback := &GiftMessage{Message: templates[s.pick(len(templates))], Source: "template", Success: true}

	if s.generator == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	raw, err := s.generator.Generate(ctx, giftMessagePrompt(req))
	if err != nil {
		log.Error().Err(err).Msg("Gift message generation failed")
		return fallback
	}

	msg := CleanGeneratedMessage(raw)
	if len(strings.Fields(msg)) < minGiftMessageWords {
		log.Warn().Str("message", msg).Msg("Generated gift message too short, using template")
		return fallback
	}
	return &GiftMessage{Message: msg, Source: "ai", Success: true}
}

func giftMessagePrompt(req GiftMessageRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a warm, personalized birthday message from %s to %s for a %s.",
		orDefault(req.SenderName, "a friend"), req.RecipientName, orDefault(req.GiftName, "gift"))

	if req.RecipientAge != nil {
		switch age := *req.RecipientAge; {
		case age < 13:
			b.WriteString(" The recipient is a child, so keep the message simple, fun, and age-appropriate.")
		case age < 18:
			b.WriteString(" The recipient is a teenager, so keep the message energetic and relatable.")
		case age < 65:
			b.WriteString(" The recipient is an adult, so keep the message mature and thoughtful.")
		default:
			b.WriteString(" The recipient is a senior, so keep the message respectful and warm, avoiding references to getting older.")
		}
	}
	if req.RecipientCountry != "" {
		fmt.Fprintf(&b, " The recipient is from %s, so consider cultural appropriateness.", req.RecipientCountry)
	}
	if req.Relationship != "" {
		fmt.Fprintf(&b, " The sender is the recipient's %s.", req.Relationship)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, " Use a %s tone.", req.Tone)
	}

	b.WriteString(`

Requirements:
- Message must be between 80-150 characters
- Be genuine, warm, and celebratory
- Include 1-2 emojis (like 🎉, 🎂, ✨, 🎈)
- Sound natural and conversational
- Do NOT include quotes, asterisks, brackets, or any formatting
- Do NOT include phrases like "Here's a message:" or "Message:"

Now write the message:`)
	return b.String()
}

var generatedPrefixes = []string{
	"here's a message:", "here is a message:", "here's the message:", "message:", "birthday message:",
}

// CleanGeneratedMessage strips the wrapping, labels and markdown a model tends
// to add, and truncates the result.
func CleanGeneratedMessage(raw string) string {
	msg := strings.TrimSpace(raw)
	msg = strings.Trim(msg, `"'“”`)
	msg = strings.TrimSpace(msg)

	lower := strings.ToLower(msg)
	for _, p := range generatedPrefixes {
		if strings.HasPrefix(lower, p) {
			msg = strings.TrimSpace(msg[len(p):])
			break
		}
	}
	msg = strings.NewReplacer("**", "", "*", "", "_", "", "`", "").Replace(msg)
	msg = strings.Join(strings.Fields(msg), " ")
	msg = strings.Trim(msg, `"'“”`)

	runes := []rune(msg)
	if len(runes) > maxGiftMessageLen {
		msg = string(runes[:maxGiftMessageLen-3]) + "..."
	}
	return msg
}

// Template categories
const (
	TemplateWarm      = "warm"
	TemplateFun       = "fun"
	TemplateHeartfelt = "heartfelt"
	TemplateShort     = "short"
)

type messageTemplate struct {
	category string
	text     string
	// avoid marks templates unsuitable for an age group or culture
	avoid []string
}

var messageTemplates = []messageTemplate{
	{TemplateWarm, "Happy Birthday, %s! 🎉 Wishing you a day filled with joy, laughter, and all the wonderful things you deserve.", nil},
	{TemplateWarm, "Happy Birthday %s! 🎈 May your day be as bright and beautiful as you are. Here's to an amazing year ahead!", nil},
	{TemplateWarm, "Wishing the happiest of birthdays to %s! 🎊 May all your dreams come true and may this year be your best one yet!", nil},
	{TemplateWarm, "Happy Birthday %s! 🌟 On this special day, I hope you feel how loved and appreciated you are.", nil},
	{TemplateWarm, "Dear %s, another year older, another year more amazing! Wishing you endless happiness today! 🎂", []string{"children", "seniors"}},
	{TemplateWarm, "Happy Birthday %s! 🌸 May your day blossom with happiness and your year with good fortune.", nil},
	{TemplateFun, "%s, it's your day! 🎉 Time for cake, cheer and way too many candles. Have a blast!", []string{"seniors"}},
	{TemplateFun, "Happy Birthday %s! 🥳 Let's make this the most epic party of the year!", []string{"seniors", "middle_eastern"}},
	{TemplateFun, "🎈 %s, another trip around the sun! Buckle up for a year of adventures and good laughs.", nil},
	{TemplateFun, "Happy Birthday %s! 🎂 Calories don't count today, so go for the extra slice!", nil},
	{TemplateFun, "Cheers to you, %s! 🎊 May your birthday be loud, sweet and full of surprises.", nil},
	{TemplateHeartfelt, "Dear %s, on your special day I hope you're surrounded by love. May this year bring you blessings and peace. ✨", nil},
	{TemplateHeartfelt, "Happy Birthday %s! 🌟 You bring so much light into the world. Today may all that light shine back on you.", nil},
	{TemplateHeartfelt, "%s, thank you for being exactly who you are. Wishing you health, joy and a year full of kindness. 💝", nil},
	{TemplateHeartfelt, "Happy Birthday %s! 🙏 May your days be long, your heart light, and your family close.", nil},
	{TemplateHeartfelt, "Dear %s, another year wiser and more wonderful. Wishing you every happiness. 🎂", []string{"children"}},
	{TemplateShort, "Happy Birthday %s! 🎉", nil},
	{TemplateShort, "Have a wonderful birthday, %s! 🎂", nil},
	{TemplateShort, "Many happy returns, %s! ✨", nil},
	{TemplateShort, "Best wishes on your birthday, %s! 🎈", nil},
}

var cultureGroups = map[string][]string{
	"western":        {"United States", "Canada", "United Kingdom", "Australia", "New Zealand", "Ireland", "Germany", "France", "Italy", "Spain", "Netherlands", "Belgium", "Switzerland", "Austria", "Sweden", "Norway", "Denmark", "Finland", "Poland", "Portugal", "Greece"},
	"asian":          {"China", "Japan", "India", "South Korea", "Singapore", "Thailand", "Vietnam", "Philippines", "Malaysia", "Indonesia", "Taiwan", "Hong Kong", "Bangladesh", "Pakistan", "Sri Lanka"},
	"middle_eastern": {"Saudi Arabia", "United Arab Emirates", "Israel", "Turkey", "Iran", "Egypt", "Lebanon", "Jordan", "Kuwait", "Qatar", "Bahrain", "Oman"},
	"african":        {"Nigeria", "South Africa", "Kenya", "Ghana", "Ethiopia", "Tanzania", "Uganda", "Morocco", "Algeria", "Tunisia"},
	"latin_american": {"Mexico", "Brazil", "Argentina", "Colombia", "Chile", "Peru", "Venezuela", "Ecuador", "Guatemala", "Cuba", "Dominican Republic"},
}

func ageGroup(age *int) string {
	if age == nil {
		return ""
	}
	switch a := *age; {
	case a <= 12:
		return "children"
	case a <= 17:
		return "teens"
	case a <= 25:
		return "young_adults"
	case a <= 64:
		return "adults"
	default:
		return "seniors"
	}
}

func cultureGroup(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return ""
	}
	for group, countries := range cultureGroups {
		for _, c := range countries {
			if strings.EqualFold(c, country) {
				return group
			}
		}
	}
	return "universal"
}

// TemplateMessages returns birthday messages for the recipient, filtered by
// category (empty for all) and by what suits their age group and culture.
// When filtering leaves nothing, every message in the category is returned.
func TemplateMessages(name string, age *int, country, category string) []string {
	name = orDefault(strings.TrimSpace(name), "friend")
	groups := []string{ageGroup(age), cultureGroup(country)}

	var all, suitable []string
	for _, t := range messageTemplates {
		if category != "" && t.category != category {
			continue
		}
		text := fmt.Sprintf(t.text, name)
		all = append(all, text)
		if !avoids(t, groups) {
			suitable = append(suitable, text)
		}
	}
	if len(suitable) > 0 {
		return suitable
	}
	if len(all) > 0 {
		return all
	}
	return TemplateMessages(name, age, country, "")
}

func avoids(t messageTemplate, groups []string) bool {
	for _, a := range t.avoid {
		for _, g := range groups {
			if a == g {
				return true
			}
		}
	}
	return false
}

// IsTemplateCategory reports whether category names a template group
func IsTemplateCategory(category string) bool {
	switch category {
	case TemplateWarm, TemplateFun, TemplateHeartfelt, TemplateShort:
		return true
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
