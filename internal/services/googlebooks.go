package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const googleBooksBaseURL = "https://www.googleapis.com/books/v1"

// BookVolume is the detail payload resolved for an ISBN.
type BookVolume struct {
	Title         string
	Authors       []string
	Description   string
	PublishedDate string
	PageCount     int
	AverageRating float64
	CoverURL      string
	Publisher     string
	Categories    []string
}

// GoogleBooksClient resolves ISBNs to volume details. The API key is
// supplied per call; the enricher tries its key list in order.
type GoogleBooksClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGoogleBooksClient() *GoogleBooksClient {
	return &GoogleBooksClient{
		baseURL: googleBooksBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *GoogleBooksClient) SetBaseURL(base string) {
	c.baseURL = base
}

type googleVolumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title         string   `json:"title"`
			Authors       []string `json:"authors"`
			Description   string   `json:"description"`
			PublishedDate string   `json:"publishedDate"`
			PageCount     int      `json:"pageCount"`
			AverageRating float64  `json:"averageRating"`
			Publisher     string   `json:"publisher"`
			Categories    []string `json:"categories"`
			ImageLinks    struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// LookupISBN returns the first volume matching the ISBN, or (nil, nil)
// when the result set is empty.
func (c *GoogleBooksClient) LookupISBN(ctx context.Context, apiKey, isbn string) (*BookVolume, error) {
	params := url.Values{}
	params.Set("q", "isbn:"+isbn)
	if apiKey != "" {
		params.Set("key", apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request to Google Books: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &KeyError{Service: "googlebooks", StatusCode: resp.StatusCode, Message: string(data)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google Books API returned status %d for %s: %s", resp.StatusCode, isbn, string(data))
	}

	var vr googleVolumesResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal volumes for %s: %w", isbn, err)
	}

	if vr.TotalItems == 0 || len(vr.Items) == 0 {
		return nil, nil
	}

	info := vr.Items[0].VolumeInfo
	return &BookVolume{
		Title:         info.Title,
		Authors:       info.Authors,
		Description:   info.Description,
		PublishedDate: info.PublishedDate,
		PageCount:     info.PageCount,
		AverageRating: info.AverageRating,
		CoverURL:      info.ImageLinks.Thumbnail,
		Publisher:     info.Publisher,
		Categories:    info.Categories,
	}, nil
}
