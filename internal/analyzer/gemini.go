package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"extendwork/recommend-service/internal/model"
)

const defaultModel = "gemini-2.5-flash"

const promptTemplate = `You are a job search assistant. Based on the candidate profile and
preferences below, produce search criteria as a single JSON object with these
fields and nothing else:

{
  "searchQueries": [3-4 short job search queries],
  "roleTitles": [alternative job titles for this candidate],
  "industryDomain": "industry domain or null",
  "yearsExperience": total years of professional experience as a number,
  "skills": [every skill the candidate has],
  "primarySkills": [exactly the 5 most marketable skills],
  "secondarySkills": [remaining relevant skills],
  "experienceLevel": "junior" | "mid" | "senior"
}

Candidate profile:
%s

Preferences:
%s`

// Gemini implements Analyzer on top of the Google GenAI client.
type Gemini struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

// NewGemini creates a Gemini analyzer for the Gemini API backend.
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

// Analyze renders the profile into the extraction prompt and parses the
// model's JSON reply into normalized criteria.
func (g *Gemini) Analyze(ctx context.Context, profile model.Profile, prefs model.Preferences) (*model.SearchCriteria, error) {
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	prefsJSON, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}

	prompt := fmt.Sprintf(promptTemplate, profileJSON, prefsJSON)

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := collectText(resp)
	if raw == "" {
		return nil, errors.New("gemini returned empty response")
	}

	criteria, err := ParseCriteria(raw, profile, prefs)
	if err != nil {
		g.logger.Warn("unparsable criteria response",
			zap.String("model", g.modelName),
			zap.Error(err),
		)
		return nil, err
	}

	return criteria, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(text)
		}
	}
	return strings.TrimSpace(b.String())
}

// ParseCriteria decodes a model reply (possibly fenced in markdown) and
// normalizes it to the criteria contract: 1–4 search queries, exactly 5
// primary skills, a known experience level.
func ParseCriteria(raw string, profile model.Profile, prefs model.Preferences) (*model.SearchCriteria, error) {
	cleaned := stripFences(raw)

	var c model.SearchCriteria
	if err := json.Unmarshal([]byte(cleaned), &c); err != nil {
		return nil, fmt.Errorf("decode criteria json: %w", err)
	}

	c.SearchQueries = compact(c.SearchQueries)
	if len(c.SearchQueries) > 4 {
		c.SearchQueries = c.SearchQueries[:4]
	}
	if len(c.SearchQueries) == 0 {
		// Fall back to whatever the candidate said they want to do.
		for _, role := range prefs.TargetRoles {
			if role = strings.TrimSpace(role); role != "" {
				c.SearchQueries = append(c.SearchQueries, role)
			}
		}
		if len(c.SearchQueries) == 0 && strings.TrimSpace(profile.Headline) != "" {
			c.SearchQueries = []string{strings.TrimSpace(profile.Headline)}
		}
		if len(c.SearchQueries) == 0 {
			return nil, errors.New("criteria contain no usable search queries")
		}
	}

	c.Skills = compact(c.Skills)
	if len(c.Skills) == 0 {
		c.Skills = compact(profile.Skills)
	}

	c.PrimarySkills = compact(c.PrimarySkills)
	if len(c.PrimarySkills) > 5 {
		c.PrimarySkills = c.PrimarySkills[:5]
	}
	for _, s := range c.Skills {
		if len(c.PrimarySkills) >= 5 {
			break
		}
		if !containsFold(c.PrimarySkills, s) {
			c.PrimarySkills = append(c.PrimarySkills, s)
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.ExperienceLevel)) {
	case model.LevelJunior:
		c.ExperienceLevel = model.LevelJunior
	case model.LevelSenior:
		c.ExperienceLevel = model.LevelSenior
	default:
		c.ExperienceLevel = model.LevelMid
	}

	return &c, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "```"); start >= 0 {
		s = s[start+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
