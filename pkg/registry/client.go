// Package registry loads cancer-registry records, either from the registry
// HTTP API or from a CSV extract.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/comorbid-index-engine/internal/domain"
)

// Config holds registry API client settings.
type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit int // requests per second
}

// Client fetches registration records from the registry API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// registrationRow is the wire shape of one registration record.
type registrationRow struct {
	Patient    []string `json:"patient"`
	Site       string   `json:"site"`
	Metastatic bool     `json:"metastatic"`
}

type registrationResponse struct {
	Registrations []registrationRow `json:"registrations"`
	NextCursor    string            `json:"next_cursor"`
}

// NewClient creates a registry API client.
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "registry",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		breaker:    breaker,
		logger:     logger,
	}
}

// FetchRecords retrieves all registration records for a cohort, following
// pagination cursors until the registry reports no more pages.
func (c *Client) FetchRecords(ctx context.Context, cohort string) ([]domain.RegistryRecord, error) {
	var out []domain.RegistryRecord
	cursor := ""

	for {
		page, err := c.fetchPage(ctx, cohort, cursor)
		if err != nil {
			return nil, err
		}

		for _, row := range page.Registrations {
			site := domain.CancerSite(row.Site)
			if !site.IsValid() {
				c.logger.WithField("site", row.Site).Warn("Skipping registration with unknown cancer site")
				continue
			}
			out = append(out, domain.RegistryRecord{
				Patient:    domain.NewPatientKey(row.Patient...),
				Site:       site,
				Metastatic: row.Metastatic,
			})
		}

		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

func (c *Client) fetchPage(ctx context.Context, cohort, cursor string) (*registrationResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doFetch(ctx, cohort, cursor)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching registry page: %w", err)
	}
	return result.(*registrationResponse), nil
}

func (c *Client) doFetch(ctx context.Context, cohort, cursor string) (*registrationResponse, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v1/registrations", c.baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid registry base URL: %w", err)
	}
	params := url.Values{"cohort": {cohort}}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var page registrationResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding registry response: %w", err)
	}
	return &page, nil
}
