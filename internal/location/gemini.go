package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

const promptTemplate = `Map each of these locations to its 2-letter lower-case
ISO country code. Reply with a single JSON object only:

{"countries": {"<location>": "<code or null>", ...}, "primary": "<most likely
home country of a person listing these locations, or null>"}

Locations:
%s`

// Gemini resolves locations through the Google GenAI client.
type Gemini struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

// NewGemini creates a Gemini-backed resolver.
func NewGemini(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if modelName = strings.TrimSpace(modelName); modelName == "" {
		modelName = defaultModel
	}

	return &Gemini{client: client, modelName: modelName, logger: logger}, nil
}

// Resolve asks the model for country codes. An empty input yields an empty
// mapping without a model call.
func (g *Gemini) Resolve(ctx context.Context, locations []string) (*Mapping, error) {
	if len(locations) == 0 {
		return &Mapping{Countries: map[string]string{}}, nil
	}

	var list strings.Builder
	for _, loc := range locations {
		list.WriteString("- ")
		list.WriteString(loc)
		list.WriteString("\n")
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		genai.Text(fmt.Sprintf(promptTemplate, list.String())), nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := ""
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil {
				raw += part.Text
			}
		}
	}

	mapping, err := ParseMapping(raw)
	if err != nil {
		g.logger.Warn("unparsable location response", zap.Error(err))
		return nil, err
	}
	return mapping, nil
}

// ParseMapping decodes a resolver reply, tolerating markdown fences and
// null codes, and normalizing codes to lower case.
func ParseMapping(raw string) (*Mapping, error) {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "```"); start >= 0 {
		raw = raw[start+3:]
		raw = strings.TrimPrefix(raw, "json")
		if end := strings.Index(raw, "```"); end >= 0 {
			raw = raw[:end]
		}
	}

	var reply struct {
		Countries map[string]*string `json:"countries"`
		Primary   *string            `json:"primary"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &reply); err != nil {
		return nil, fmt.Errorf("decode location json: %w", err)
	}

	mapping := &Mapping{Countries: make(map[string]string, len(reply.Countries))}
	for loc, code := range reply.Countries {
		if code == nil {
			continue
		}
		c := strings.ToLower(strings.TrimSpace(*code))
		if len(c) == 2 {
			mapping.Countries[loc] = c
		}
	}
	if reply.Primary != nil {
		if p := strings.ToLower(strings.TrimSpace(*reply.Primary)); len(p) == 2 {
			mapping.Primary = p
		}
	}

	return mapping, nil
}
