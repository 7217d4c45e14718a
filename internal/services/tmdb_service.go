package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/liamwears/reelshelf/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// TMDBService handles interactions with The Movie Database API
type TMDBService struct {
	client       *http.Client
	limiter      *rate.Limiter
	baseURL      string
	imageBaseURL string
	language     string
}

// TMDBConfig holds TMDB service configuration
type TMDBConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Language     string
	// RateLimit is the maximum number of requests per second
	RateLimit float64
	Timeout   time.Duration
	// Transport is the base transport, http.DefaultTransport when nil
	Transport http.RoundTripper
}

// NewTMDBService creates a new TMDB service. The API key is the v4 read
// access token and is sent as a bearer token on every request.
func NewTMDBService(cfg TMDBConfig) *TMDBService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = "https://image.tmdb.org/t/p/w500"
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	burst := int(cfg.RateLimit)
	if burst < 1 {
		burst = 1
	}

	return &TMDBService{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"}),
				Base:   cfg.Transport,
			},
		},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: cfg.ImageBaseURL,
		language:     cfg.Language,
	}
}

// TMDBMovie represents a movie from TMDB API
type TMDBMovie struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	PosterPath   *string        `json:"poster_path"`
	BackdropPath *string        `json:"backdrop_path"`
	ReleaseDate  string         `json:"release_date"`
	VoteAverage  float64        `json:"vote_average"`
	Overview     string         `json:"overview"`
	Runtime      *int           `json:"runtime,omitempty"`
	GenreIDs     []int          `json:"genre_ids,omitempty"`
	Genres       []models.Genre `json:"genres,omitempty"`
}

// TMDBMovieResponse represents a paged movie list response
type TMDBMovieResponse struct {
	Page         int         `json:"page"`
	Results      []TMDBMovie `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// TMDBGenreResponse represents the genre list response
type TMDBGenreResponse struct {
	Genres []models.Genre `json:"genres"`
}

// ToMovie converts a TMDB payload into a normalized movie record
func (t TMDBMovie) ToMovie() models.Movie {
	m := models.Movie{
		ID:          t.ID,
		Title:       t.Title,
		Overview:    t.Overview,
		ReleaseDate: t.ReleaseDate,
		VoteAverage: t.VoteAverage,
		GenreIDs:    t.GenreIDs,
		Genres:      t.Genres,
	}
	if t.PosterPath != nil {
		m.PosterPath = *t.PosterPath
	}
	if t.BackdropPath != nil {
		m.BackdropPath = *t.BackdropPath
	}
	if t.Runtime != nil {
		m.Runtime = *t.Runtime
	}
	m.Normalize()
	return m
}

// doRequest performs an HTTP request to TMDB API
func (s *TMDBService) doRequest(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s%s", s.baseURL, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	q := req.URL.Query()
	q.Add("language", s.language)
	q.Add("include_adult", "false")
	for key, value := range params {
		q.Add(key, value)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("TMDB API error: status %d: %w", resp.StatusCode, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TMDB API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func (s *TMDBService) getMovieList(ctx context.Context, endpoint string, params map[string]string) ([]models.Movie, error) {
	body, err := s.doRequest(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var response TMDBMovieResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s results: %w", endpoint, err)
	}

	movies := make([]models.Movie, 0, len(response.Results))
	for _, r := range response.Results {
		movies = append(movies, r.ToMovie())
	}
	return movies, nil
}

// FetchPopular retrieves one page of popular movies
func (s *TMDBService) FetchPopular(ctx context.Context, page int) ([]models.Movie, error) {
	if page < 1 {
		page = 1
	}
	return s.getMovieList(ctx, "/movie/popular", map[string]string{
		"page": strconv.Itoa(page),
	})
}

// SearchByTitle searches movies by title only
func (s *TMDBService) SearchByTitle(ctx context.Context, text string) ([]models.Movie, error) {
	return s.getMovieList(ctx, "/search/movie", map[string]string{
		"query": text,
		"page":  "1",
	})
}

// Discover lists movies matching every filter; a movie matches the genre
// filter when it has any of the selected genres
func (s *TMDBService) Discover(ctx context.Context, filters DiscoverFilters) ([]models.Movie, error) {
	params := map[string]string{
		"page":    "1",
		"sort_by": "popularity.desc",
	}
	if len(filters.GenreIDs) > 0 {
		ids := make([]string, 0, len(filters.GenreIDs))
		for _, id := range filters.GenreIDs {
			ids = append(ids, strconv.Itoa(id))
		}
		params["with_genres"] = strings.Join(ids, "|")
	}
	if year := strings.TrimSpace(filters.Year); year != "" {
		params["primary_release_year"] = year
	}
	if filters.MinRating != nil {
		params["vote_average.gte"] = strconv.FormatFloat(*filters.MinRating, 'f', -1, 64)
	}

	return s.getMovieList(ctx, "/discover/movie", params)
}

// FetchGenres retrieves the movie genre list
func (s *TMDBService) FetchGenres(ctx context.Context) ([]models.Genre, error) {
	body, err := s.doRequest(ctx, "/genre/movie/list", nil)
	if err != nil {
		return nil, err
	}

	var response TMDBGenreResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal genres: %w", err)
	}
	if response.Genres == nil {
		response.Genres = []models.Genre{}
	}
	return response.Genres, nil
}

// FetchByID retrieves a movie by ID
func (s *TMDBService) FetchByID(ctx context.Context, id int64) (models.Movie, error) {
	body, err := s.doRequest(ctx, fmt.Sprintf("/movie/%d", id), nil)
	if err != nil {
		return models.Movie{}, err
	}

	var movie TMDBMovie
	if err := json.Unmarshal(body, &movie); err != nil {
		return models.Movie{}, fmt.Errorf("failed to unmarshal movie: %w", err)
	}

	return movie.ToMovie(), nil
}

// GetImageURL returns the full URL for an image path. Locally encoded
// posters and absolute URLs are returned unchanged.
func (s *TMDBService) GetImageURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "data:") || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.imageBaseURL + path
}
