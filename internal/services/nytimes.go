package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mediarr/mediarr/internal/models"
)

const nytBaseURL = "https://api.nytimes.com/svc/books/v3"

// DefaultBestsellerLists are the list names scanned during a book
// population run, in display order.
var DefaultBestsellerLists = []string{
	"hardcover-fiction",
	"hardcover-nonfiction",
	"trade-fiction-paperback",
	"paperback-nonfiction",
	"young-adult-hardcover",
	"combined-print-and-e-book-fiction",
	"combined-print-and-e-book-nonfiction",
	"advice-how-to-and-miscellaneous",
}

// NYTClient is the bestseller-list catalog client.
type NYTClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewNYTClient(apiKey string) *NYTClient {
	return &NYTClient{
		apiKey:  apiKey,
		baseURL: nytBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *NYTClient) SetBaseURL(base string) {
	c.baseURL = base
}

type nytListResponse struct {
	Status  string `json:"status"`
	Results struct {
		ListName string `json:"list_name"`
		Books    []struct {
			Rank          int    `json:"rank"`
			PrimaryISBN13 string `json:"primary_isbn13"`
			Title         string `json:"title"`
			Author        string `json:"author"`
			Description   string `json:"description"`
			BookImage     string `json:"book_image"`
			Publisher     string `json:"publisher"`
		} `json:"books"`
	} `json:"results"`
}

// BestsellerList returns the current books on one named list, in list
// rank order.
func (c *NYTClient) BestsellerList(ctx context.Context, listName string) ([]models.Book, error) {
	endpoint := fmt.Sprintf("%s/lists/current/%s.json", c.baseURL, url.PathEscape(listName))
	params := url.Values{}
	params.Set("api-key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request to NYT: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &KeyError{Service: "nyt", StatusCode: resp.StatusCode, Message: string(data)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NYT API returned status %d for list %s: %s", resp.StatusCode, listName, string(data))
	}

	var lr nytListResponse
	if err := json.Unmarshal(data, &lr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal list %s: %w", listName, err)
	}

	books := make([]models.Book, 0, len(lr.Results.Books))
	for _, b := range lr.Results.Books {
		var authors []string
		if b.Author != "" {
			authors = []string{b.Author}
		}
		books = append(books, models.Book{
			ISBN:        b.PrimaryISBN13,
			Title:       b.Title,
			Authors:     authors,
			Description: b.Description,
			CoverURL:    b.BookImage,
			Publisher:   b.Publisher,
		})
	}

	return books, nil
}
