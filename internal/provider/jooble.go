package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"extendwork/recommend-service/internal/model"
)

const joobleBaseURL = "https://jooble.org/api"

// Jooble fetches job offers from the Jooble REST API. A missing API key
// makes Search a graceful no-op, same as the Adzuna client.
type Jooble struct {
	APIKey  string
	BaseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewJooble constructs a Jooble client.
func NewJooble(apiKey string, logger *zap.Logger) *Jooble {
	return &Jooble{
		APIKey:  apiKey,
		BaseURL: joobleBaseURL,
		client:  &http.Client{Timeout: httpTimeout},
		logger:  logger,
	}
}

func (j *Jooble) Name() string { return "jooble" }

type joobleRequest struct {
	Keywords string `json:"keywords"`
	Location string `json:"location,omitempty"`
}

type joobleResponse struct {
	TotalCount int         `json:"totalCount"`
	Jobs       []joobleJob `json:"jobs"`
}

type joobleJob struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Snippet  string `json:"snippet"`
	Salary   string `json:"salary"`
	Company  string `json:"company"`
	Type     string `json:"type"`
	Link     string `json:"link"`
	Updated  string `json:"updated"`
}

// Search posts the query to Jooble and maps the response. Returns nil
// without error when the API key is missing.
func (j *Jooble) Search(ctx context.Context, q Query) ([]model.RawListing, error) {
	if j.APIKey == "" {
		j.logger.Debug("jooble api key not set, skipping search")
		return nil, nil
	}

	location := q.Location
	if strings.EqualFold(location, model.RemoteRemote) && q.Country != "" {
		// Jooble has no remote filter; search the whole country and keep
		// the remote flag on the results.
		location = q.Country
	}

	payload, err := json.Marshal(joobleRequest{Keywords: q.Keywords, Location: location})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s", j.BaseURL, j.APIKey), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http POST: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jooble returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp joobleResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	listings := make([]model.RawListing, 0, len(apiResp.Jobs))
	for _, job := range apiResp.Jobs {
		l := model.RawListing{
			Title:          job.Title,
			Company:        job.Company,
			Location:       job.Location,
			Description:    job.Snippet,
			EmploymentType: joobleEmployment(job.Type),
			Source:         j.Name(),
			ApplyURL:       job.Link,
		}
		l.SalaryMin, l.SalaryMax = parseSalaryRange(job.Salary)
		if strings.EqualFold(q.Location, model.RemoteRemote) {
			l.RemoteType = model.RemoteRemote
		}
		if t, err := time.Parse("2006-01-02T15:04:05.9999999", job.Updated); err == nil {
			l.PostedAt = &t
		} else if t, err := time.Parse(time.RFC3339, job.Updated); err == nil {
			l.PostedAt = &t
		}
		listings = append(listings, l)
	}

	return listings, nil
}

func joobleEmployment(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "full-time", "fulltime":
		return "full-time"
	case "part-time", "parttime":
		return "part-time"
	case "temporary", "contract":
		return "contract"
	case "internship":
		return "internship"
	}
	return ""
}

var salaryNumber = regexp.MustCompile(`\d[\d\s.,]*`)

// parseSalaryRange pulls numeric bounds out of a free-text salary such as
// "12 000 - 18 000 zł" or "$85,000". A single figure fills both bounds.
func parseSalaryRange(s string) (min, max float64) {
	matches := salaryNumber.FindAllString(s, 2)
	parse := func(m string) float64 {
		m = strings.NewReplacer(" ", "", " ", "", ",", "").Replace(strings.TrimSpace(m))
		v, _ := strconv.ParseFloat(m, 64)
		return v
	}
	switch len(matches) {
	case 1:
		v := parse(matches[0])
		return v, v
	case 2:
		return parse(matches[0]), parse(matches[1])
	}
	return 0, 0
}
