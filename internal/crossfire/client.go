// Package crossfire is the client for the Fogo Cruzado incident feed.
package crossfire

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vigiamaps/occurrence-hotspots/internal/model"
	"github.com/vigiamaps/occurrence-hotspots/internal/observability"
	"github.com/vigiamaps/occurrence-hotspots/internal/pipeline"
)

const (
	// MaxPages bounds how many pages one fetch may issue.
	MaxPages = 25
	// PageSize is the per-page record count requested from the provider.
	PageSize = 150

	idCacheSize = 256
)

// NewHTTP builds the resty client shared by the authenticator and fetcher.
func NewHTTP(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
}

// Client fetches occurrence records for a region and date window.
type Client struct {
	http   *resty.Client
	ids    *lru.Cache[string, string]
	logger *slog.Logger
}

func NewClient(http *resty.Client, logger *slog.Logger) *Client {
	// reference lists are small and near-static; memoize resolved ids
	ids, _ := lru.New[string, string](idCacheSize)
	return &Client{http: http, ids: ids, logger: logger}
}

// FetchIncidents retrieves every record for the region inside the window,
// via concurrent page requests. A failed page contributes zero records and
// does not fail the call: partial data beats no data for an exploratory
// hotspot display. Zero matching records is an empty slice, not an error.
func (c *Client) FetchIncidents(ctx context.Context, region model.Region, window model.DateWindow, token string) ([]model.IncidentRecord, error) {
	stateID, err := c.stateID(ctx, region.State, token)
	if err != nil {
		return nil, err
	}
	if stateID == "" {
		// An unmapped state narrows the filter but does not block the fetch.
		c.logger.Warn("state not mapped by provider", "state", region.State)
	}

	cityID, err := c.cityID(ctx, region.City, token)
	if err != nil {
		return nil, err
	}
	if cityID == "" {
		return nil, fmt.Errorf("%w: city %q", pipeline.ErrRegionUnmapped, region.City)
	}

	type page struct {
		records []model.IncidentRecord
		failed  bool
	}
	pages := make([]page, MaxPages)
	var wg sync.WaitGroup
	for i := range MaxPages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := c.fetchPage(ctx, stateID, cityID, window, token, i+1)
			if err != nil {
				observability.IncPageResult("error")
				c.logger.Warn("page fetch failed", "page", i+1, "err", err)
				pages[i] = page{failed: true}
				return
			}
			observability.IncPageResult("ok")
			pages[i] = page{records: records}
		}()
	}
	wg.Wait()

	// Reassemble in page-index order, not completion order. The early-stop
	// rule was designed for sequential pagination; with concurrent dispatch
	// it becomes an optimistic trim over the full batch: the first short
	// successful page is taken as the last page and later pages are
	// discarded even if they returned data. Approximate, and accepted as
	// such. A failed page never trims: it only contributes zero records.
	out := make([]model.IncidentRecord, 0, PageSize)
	for _, p := range pages {
		if p.failed {
			continue
		}
		out = append(out, p.records...)
		if len(p.records) < PageSize {
			break
		}
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, stateID, cityID string, window model.DateWindow, token string, page int) ([]model.IncidentRecord, error) {
	start := time.Now()
	var out occurrencesResponse
	params := map[string]string{
		"order":       "ASC",
		"initialdate": window.Start.Format("2006-01-02"),
		"finaldate":   window.End.Format("2006-01-02"),
		"idCities":    cityID,
		"take":        strconv.Itoa(PageSize),
		"page":        strconv.Itoa(page),
	}
	if stateID != "" {
		params["idState"] = stateID
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		SetResult(&out).
		Get("/occurrences")
	observability.ObserveUpstreamLatency("crossfire", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: occurrences page %d: %v", pipeline.ErrUpstreamUnavailable, page, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: occurrences page %d: HTTP %d", pipeline.ErrUpstreamRejected, page, resp.StatusCode())
	}
	if out.Code != 200 {
		return nil, fmt.Errorf("%w: occurrences page %d: provider code %d", pipeline.ErrUpstreamRejected, page, out.Code)
	}
	return out.Data, nil
}

// stateID resolves the provider id for a state name, case-insensitively.
// Returns "" when the provider does not list the state.
func (c *Client) stateID(ctx context.Context, state, token string) (string, error) {
	cacheKey := "state:" + strings.ToLower(state)
	if id, ok := c.ids.Get(cacheKey); ok {
		return id, nil
	}

	var out listResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out).
		Get("/states")
	if err != nil {
		return "", fmt.Errorf("%w: states: %v", pipeline.ErrUpstreamUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: states: HTTP %d", pipeline.ErrUpstreamRejected, resp.StatusCode())
	}

	id := matchName(out.Data, state)
	if id != "" {
		c.ids.Add(cacheKey, id)
	}
	return id, nil
}

// cityID resolves the provider id for a city name, case-insensitively.
// Returns "" when the provider does not list the city.
func (c *Client) cityID(ctx context.Context, city, token string) (string, error) {
	cacheKey := "city:" + strings.ToLower(city)
	if id, ok := c.ids.Get(cacheKey); ok {
		return id, nil
	}

	var out listResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("cityName", strings.ToUpper(city)).
		SetResult(&out).
		Get("/cities")
	if err != nil {
		return "", fmt.Errorf("%w: cities: %v", pipeline.ErrUpstreamUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: cities: HTTP %d", pipeline.ErrUpstreamRejected, resp.StatusCode())
	}

	id := matchName(out.Data, city)
	if id != "" {
		// only memoize hits; a miss may be a transient provider gap
		c.ids.Add(cacheKey, id)
	}
	return id, nil
}

func matchName(entities []namedEntity, name string) string {
	for _, e := range entities {
		if strings.EqualFold(e.Name, name) {
			return e.ID
		}
	}
	return ""
}
