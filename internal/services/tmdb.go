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

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
)

// TMDBClient is the primary-catalog client: paged discover feeds plus
// per-title detail fetches.
type TMDBClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewTMDBClient(apiKey string) *TMDBClient {
	return &TMDBClient{
		apiKey:  apiKey,
		baseURL: tmdbBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *TMDBClient) SetBaseURL(base string) {
	c.baseURL = base
}

type tmdbMovie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	GenreIDs     []int   `json:"genre_ids"`
}

type tmdbTVShow struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count"`
	GenreIDs     []int   `json:"genre_ids"`
}

type tmdbDetails struct {
	Runtime int    `json:"runtime"`
	Tagline string `json:"tagline"`
	Status  string `json:"status"`
	Genres  []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
	NumberOfSeasons int `json:"number_of_seasons"`
	EpisodeRunTime  []int `json:"episode_run_time"`
	Credits         struct {
		Cast []struct {
			Name      string `json:"name"`
			Character string `json:"character"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
	Videos struct {
		Results []struct {
			Key  string `json:"key"`
			Site string `json:"site"`
			Type string `json:"type"`
		} `json:"results"`
	} `json:"videos"`
}

// DiscoverMovies returns one page of the popularity-sorted movie feed.
func (c *TMDBClient) DiscoverMovies(ctx context.Context, page int) ([]models.Movie, error) {
	endpoint := fmt.Sprintf("%s/discover/movie", c.baseURL)
	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("sort_by", "popularity.desc")
	params.Set("include_adult", "false")

	data, err := c.makeRequest(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []tmdbMovie `json:"results"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal discover results: %w", err)
	}

	movies := make([]models.Movie, 0, len(result.Results))
	for _, tm := range result.Results {
		movies = append(movies, models.Movie{
			TMDBID:       tm.ID,
			Title:        tm.Title,
			Overview:     tm.Overview,
			PosterPath:   tm.PosterPath,
			BackdropPath: tm.BackdropPath,
			ReleaseDate:  tm.ReleaseDate,
			VoteAverage:  tm.VoteAverage,
			VoteCount:    tm.VoteCount,
			GenreIDs:     tm.GenreIDs,
		})
	}

	return movies, nil
}

// DiscoverTVShows returns one page of the popularity-sorted TV feed.
func (c *TMDBClient) DiscoverTVShows(ctx context.Context, page int) ([]models.TVShow, error) {
	endpoint := fmt.Sprintf("%s/discover/tv", c.baseURL)
	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("sort_by", "popularity.desc")
	params.Set("include_adult", "false")

	data, err := c.makeRequest(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []tmdbTVShow `json:"results"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal discover results: %w", err)
	}

	shows := make([]models.TVShow, 0, len(result.Results))
	for _, ts := range result.Results {
		shows = append(shows, models.TVShow{
			TMDBID:       ts.ID,
			Name:         ts.Name,
			Overview:     ts.Overview,
			PosterPath:   ts.PosterPath,
			BackdropPath: ts.BackdropPath,
			FirstAirDate: ts.FirstAirDate,
			VoteAverage:  ts.VoteAverage,
			VoteCount:    ts.VoteCount,
			GenreIDs:     ts.GenreIDs,
		})
	}

	return shows, nil
}

// GetMovieDetails fetches the extended detail payload for a movie,
// including credits and trailer references in a single call.
func (c *TMDBClient) GetMovieDetails(ctx context.Context, tmdbID int) (*models.Details, error) {
	endpoint := fmt.Sprintf("%s/movie/%d", c.baseURL, tmdbID)
	return c.getDetails(ctx, endpoint, "Director")
}

// GetTVShowDetails fetches the extended detail payload for a series.
func (c *TMDBClient) GetTVShowDetails(ctx context.Context, tmdbID int) (*models.Details, error) {
	endpoint := fmt.Sprintf("%s/tv/%d", c.baseURL, tmdbID)
	return c.getDetails(ctx, endpoint, "Executive Producer")
}

func (c *TMDBClient) getDetails(ctx context.Context, endpoint, directorJob string) (*models.Details, error) {
	params := url.Values{}
	params.Set("append_to_response", "credits,videos")

	data, err := c.makeRequest(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var td tmdbDetails
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, fmt.Errorf("failed to unmarshal details: %w", err)
	}

	return c.convertDetails(&td, directorJob), nil
}

const maxCastMembers = 10

func (c *TMDBClient) convertDetails(td *tmdbDetails, directorJob string) *models.Details {
	genres := make([]string, len(td.Genres))
	for i, g := range td.Genres {
		genres[i] = g.Name
	}

	cast := make([]models.CastMember, 0, maxCastMembers)
	for _, member := range td.Credits.Cast {
		if len(cast) == maxCastMembers {
			break
		}
		cast = append(cast, models.CastMember{Name: member.Name, Character: member.Character})
	}

	var directors []string
	for _, member := range td.Credits.Crew {
		if member.Job == directorJob {
			directors = append(directors, member.Name)
		}
	}

	var trailerKey string
	for _, video := range td.Videos.Results {
		if video.Site == "YouTube" && video.Type == "Trailer" {
			trailerKey = video.Key
			break
		}
	}

	runtime := td.Runtime
	if runtime == 0 && len(td.EpisodeRunTime) > 0 {
		runtime = td.EpisodeRunTime[0]
	}

	return &models.Details{
		Runtime:    runtime,
		Tagline:    td.Tagline,
		Status:     td.Status,
		Genres:     genres,
		Cast:       cast,
		Directors:  directors,
		TrailerKey: trailerKey,
		Seasons:    td.NumberOfSeasons,
	}
}

// makeRequest performs an HTTP GET request to the TMDB API
func (c *TMDBClient) makeRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("api_key", c.apiKey)

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TMDB endpoint %s: %w", endpoint, err)
	}

	q := u.Query()
	for k, vals := range params {
		for _, v := range vals {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request to %s: %w", u.String(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &KeyError{Service: "tmdb", StatusCode: resp.StatusCode, Message: string(data)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TMDB API returned status %d for %s: %s", resp.StatusCode, u.String(), string(data))
	}

	return data, nil
}

// GetPosterURL returns the full poster URL
func (c *TMDBClient) GetPosterURL(path string, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", tmdbImageBaseURL, size, path)
}
