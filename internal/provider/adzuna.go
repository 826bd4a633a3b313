package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"extendwork/recommend-service/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	httpTimeout    = 15 * time.Second
)

// Adzuna fetches job offers from the Adzuna public API. If AppID or AppKey
// is empty, Search returns (nil, nil) gracefully and the pipeline simply
// gets nothing from this provider.
type Adzuna struct {
	AppID          string
	AppKey         string
	DefaultCountry string // used when the query carries no country
	BaseURL        string
	client         *http.Client
	logger         *zap.Logger
}

// NewAdzuna constructs an Adzuna client with a shared HTTP client.
func NewAdzuna(appID, appKey, defaultCountry string, logger *zap.Logger) *Adzuna {
	return &Adzuna{
		AppID:          appID,
		AppKey:         appKey,
		DefaultCountry: defaultCountry,
		BaseURL:        adzunaBaseURL,
		client:         &http.Client{Timeout: httpTimeout},
		logger:         logger,
	}
}

func (a *Adzuna) Name() string { return "adzuna" }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Company      adzunaCompany  `json:"company"`
	Location     adzunaLocation `json:"location"`
	SalaryMin    float64        `json:"salary_min"`
	SalaryMax    float64        `json:"salary_max"`
	RedirectURL  string         `json:"redirect_url"`
	Created      string         `json:"created"`
	ContractTime string         `json:"contract_time"`
	ContractType string         `json:"contract_type"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// Search retrieves the first page of offers for the query. Returns nil
// without error when credentials are missing.
func (a *Adzuna) Search(ctx context.Context, q Query) ([]model.RawListing, error) {
	if a.AppID == "" || a.AppKey == "" {
		a.logger.Debug("adzuna credentials not set, skipping search")
		return nil, nil
	}

	country := q.Country
	if country == "" {
		country = a.DefaultCountry
	}

	endpoint := fmt.Sprintf("%s/%s/search/1", a.BaseURL, country)

	params := url.Values{}
	params.Set("app_id", a.AppID)
	params.Set("app_key", a.AppKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", q.Keywords)
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")
	if loc := strings.TrimSpace(q.Location); loc != "" && !strings.EqualFold(loc, model.RemoteRemote) {
		params.Set("where", loc)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	listings := make([]model.RawListing, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		l := model.RawListing{
			Title:          r.Title,
			Company:        r.Company.DisplayName,
			Location:       r.Location.DisplayName,
			Description:    r.Description,
			SalaryMin:      r.SalaryMin,
			SalaryMax:      r.SalaryMax,
			EmploymentType: adzunaEmployment(r.ContractTime, r.ContractType),
			Source:         a.Name(),
			ApplyURL:       r.RedirectURL,
		}
		if strings.EqualFold(q.Location, model.RemoteRemote) {
			l.RemoteType = model.RemoteRemote
		}
		if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
			l.PostedAt = &t
		}
		listings = append(listings, l)
	}

	return listings, nil
}

func adzunaEmployment(contractTime, contractType string) string {
	switch contractTime {
	case "full_time":
		return "full-time"
	case "part_time":
		return "part-time"
	}
	if contractType == "contract" {
		return "contract"
	}
	return ""
}
