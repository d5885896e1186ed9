package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

const freesoundFields = "id,name,username,license,previews"

// FreesoundClient implements domain.SoundSource against the Freesound APIv2
type FreesoundClient struct {
	config     *domain.FreesoundConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFreesoundClient creates a new search client
func NewFreesoundClient(config *domain.FreesoundConfig, timeout time.Duration, logger *zap.Logger) *FreesoundClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FreesoundClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type searchResponse struct {
	Count   int            `json:"count"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Username string            `json:"username"`
	License  string            `json:"license"`
	Previews map[string]string `json:"previews"`
}

// Search runs a text search and returns descriptors in result order
func (c *FreesoundClient) Search(ctx context.Context, query string) ([]domain.SoundDescriptor, error) {
	endpoint, err := c.searchURL(query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Token "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search request failed: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search returned HTTP %d", domain.ErrNetwork, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed search response: %v", domain.ErrNetwork, err)
	}

	sounds := make([]domain.SoundDescriptor, 0, len(body.Results))
	for _, r := range body.Results {
		preview := c.pickPreview(r.Previews)
		if preview == "" {
			c.logger.Debug("Skipping sound without preview", zap.Int64("id", r.ID))
			continue
		}
		sounds = append(sounds, domain.SoundDescriptor{
			ID:         strconv.FormatInt(r.ID, 10),
			Name:       r.Name,
			Author:     r.Username,
			License:    r.License,
			PreviewURL: preview,
		})
	}

	c.logger.Info("Search finished",
		zap.String("query", query),
		zap.Int("count", body.Count),
		zap.Int("usable", len(sounds)))

	if len(sounds) == 0 {
		return nil, fmt.Errorf("%w: no sounds for query %q", domain.ErrEmptyResult, query)
	}
	return sounds, nil
}

func (c *FreesoundClient) searchURL(query string) (string, error) {
	base, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/") + "/search/text/")
	if err != nil {
		return "", fmt.Errorf("invalid freesound base url: %w", err)
	}

	params := url.Values{}
	params.Set("query", query)
	if c.config.Filter != "" {
		params.Set("filter", c.config.Filter)
	}
	if c.config.Sort != "" {
		params.Set("sort", c.config.Sort)
	}
	params.Set("page", "1")
	params.Set("page_size", strconv.Itoa(c.config.PageSize))
	params.Set("fields", freesoundFields)
	base.RawQuery = params.Encode()

	return base.String(), nil
}

// pickPreview prefers the configured format and falls back through the rest.
func (c *FreesoundClient) pickPreview(previews map[string]string) string {
	order := []string{"preview-" + c.config.PreviewFormat, "preview-hq-ogg", "preview-hq-mp3", "preview-lq-ogg", "preview-lq-mp3"}
	for _, key := range order {
		if u := previews[key]; u != "" {
			return u
		}
	}
	return ""
}
