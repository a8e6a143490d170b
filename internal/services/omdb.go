package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mediarr/mediarr/internal/models"
)

const omdbBaseURL = "https://www.omdbapi.com"

// OMDBClient is the secondary-catalog client. Lookups are by title, type
// and year; the API key is supplied per call so the key pool can rotate
// keys between items.
type OMDBClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOMDBClient() *OMDBClient {
	return &OMDBClient{
		baseURL: omdbBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *OMDBClient) SetBaseURL(base string) {
	c.baseURL = base
}

type omdbResponse struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
	ImdbID   string `json:"imdbID"`
	Rated    string `json:"Rated"`
	Runtime  string `json:"Runtime"`
	Awards   string `json:"Awards"`
}

// Lookup resolves a title+type+year to a cross-reference record.
// mediaType is "movie" or "series". Returns (nil, nil) when the catalog
// has no match for a working key; a *KeyError when the key itself was
// rejected.
func (c *OMDBClient) Lookup(ctx context.Context, apiKey, title, mediaType string, year int) (*models.CrossReference, error) {
	params := url.Values{}
	params.Set("apikey", apiKey)
	params.Set("t", title)
	params.Set("type", mediaType)
	params.Set("y", fmt.Sprintf("%d", year))

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request to OMDb: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &KeyError{Service: "omdb", StatusCode: resp.StatusCode, Message: string(data)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OMDb API returned status %d: %s", resp.StatusCode, string(data))
	}

	var or omdbResponse
	if err := json.Unmarshal(data, &or); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OMDb response: %w", err)
	}

	if strings.EqualFold(or.Response, "False") {
		// OMDb reports key problems in-band with a 200.
		if isOMDBKeyError(or.Error) {
			return nil, &KeyError{Service: "omdb", StatusCode: resp.StatusCode, Message: or.Error}
		}
		return nil, nil
	}

	return &models.CrossReference{
		IMDBID:        or.ImdbID,
		ContentRating: or.Rated,
		Runtime:       or.Runtime,
		Awards:        or.Awards,
	}, nil
}

func isOMDBKeyError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "request limit") ||
		strings.Contains(lower, "limit reached")
}
