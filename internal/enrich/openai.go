package enrich

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/tidwall/gjson"

	"github.com/osintops/sentinel/internal/domain"
	"github.com/osintops/sentinel/internal/verify"
)

// OpenAIScorer scores payloads with a chat-completion model. The model's
// answer is advisory: it is blended with the deterministic heuristic, never
// trusted on its own.
type OpenAIScorer struct {
	// openai.NewClient returns a Client value, not a pointer.
	client openai.Client
	model  string
}

// NewOpenAIScorer creates a scorer using the OPENAI_API_KEY environment
// variable. Returns nil when no key is configured so callers can fall back
// to the pure heuristic.
func NewOpenAIScorer() *OpenAIScorer {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil
	}
	return &OpenAIScorer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  "gpt-4o-mini",
	}
}

const scorePrompt = `Assess this intelligence item.
Title: %s
Summary: %s
Category: %s
Source: %s

Respond with JSON only:
{"credibility": 0.0-1.0, "disinfo_risk": 0.0-1.0, "threat_category": "low|medium|high|critical"}`

// Score asks the model for a credibility/disinformation assessment and
// parses the JSON answer tolerantly.
func (s *OpenAIScorer) Score(ctx context.Context, p verify.Payload) (*verify.Signal, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(fmt.Sprintf(scorePrompt, p.Title, p.Summary, p.Category, p.SourceURL)),
					},
				},
			},
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(200),
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	return parseSignal(resp.Choices[0].Message.Content)
}

// parseSignal extracts the signal from the model output. Models sometimes
// wrap JSON in markdown fences, so gjson is used rather than strict
// unmarshalling.
func parseSignal(content string) (*verify.Signal, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	if !gjson.Valid(content) {
		return nil, fmt.Errorf("scorer returned invalid JSON")
	}

	parsed := gjson.Parse(content)
	cred := parsed.Get("credibility")
	if !cred.Exists() {
		return nil, fmt.Errorf("scorer response missing credibility")
	}

	return &verify.Signal{
		Credibility:    domain.Clamp01(cred.Float()),
		DisinfoRisk:    domain.Clamp01(parsed.Get("disinfo_risk").Float()),
		ThreatCategory: domain.ParseThreatLevel(parsed.Get("threat_category").String()),
	}, nil
}
