package cliniko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Patient holds the subset of patient record fields used for note context.
type Patient struct {
	ID           json.Number `json:"id"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	DateOfBirth  string      `json:"date_of_birth"`
	Email        string      `json:"email"`
	Medicare     string      `json:"medicare"`
	AddressLine1 string      `json:"address_1"`
	AddressLine2 string      `json:"address_2"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	PostCode     string      `json:"post_code"`
	Country      string      `json:"country"`
}

// Client is a slim read-only client for the Cliniko practice management API.
// The shard is derived from the API key so callers only supply credentials.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a Cliniko client for the shard encoded in the API key.
func NewClient(apiKey string, logger *zap.Logger) *Client {
	shard := ShardFromAPIKey(apiKey)
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		apiKey:     apiKey,
		baseURL:    fmt.Sprintf("https://api.%s.cliniko.com/v1", shard),
	}
}

// GetPatient fetches one patient record by id.
func (c *Client) GetPatient(ctx context.Context, patientID string) (*Patient, error) {
	var patient Patient
	if err := c.get(ctx, fmt.Sprintf("/patients/%s", patientID), &patient); err != nil {
		return nil, err
	}
	return &patient, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build cliniko request: %w", err)
	}
	// Cliniko uses the API key as the basic auth username with no password,
	// and rejects requests without a descriptive user agent.
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "clinicopilot (support@clinicopilot.app)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cliniko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Cliniko request rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("cliniko responded %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode cliniko response: %w", err)
	}
	return nil
}
