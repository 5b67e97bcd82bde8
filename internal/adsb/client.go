package adsb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yegors/fdwatch/internal/geo"
	"github.com/yegors/fdwatch/pkg/logger"
)

// Source types
const (
	SourceLocal      = "local"
	SourceExternal   = "external-adsbexchangelike"
	SourceSimulation = "simulation"
)

// ErrUnexpectedStatus is returned when the feed answers with a non-200 status
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Source produces the snapshot list for one poll
type Source interface {
	Fetch(ctx context.Context) ([]Snapshot, error)
}

// Client is responsible for fetching ADS-B data from the source
type Client struct {
	httpClient        *http.Client
	sourceType        string
	localSourceURL    string
	externalSourceURL string
	apiHost           string
	apiKey            string
	stationLat        float64
	stationLon        float64
	searchRadiusNM    float64
	logger            *logger.Logger
}

// NewClient creates a new ADS-B client. The search radius is given in statute miles and
// sent to external APIs in nautical miles.
func NewClient(
	sourceType string,
	localSourceURL string,
	externalSourceURL string,
	apiHost string,
	apiKey string,
	stationLat float64,
	stationLon float64,
	searchRadiusMiles float64,
	timeout time.Duration,
	loggerObj *logger.Logger,
) *Client {
	return &Client{
		sourceType:        sourceType,
		localSourceURL:    localSourceURL,
		externalSourceURL: externalSourceURL,
		apiHost:           apiHost,
		apiKey:            apiKey,
		stationLat:        stationLat,
		stationLon:        stationLon,
		searchRadiusNM:    searchRadiusMiles / geo.KnotsToMPH,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: loggerObj.Named("adsb-cli"),
	}
}

// Fetch implements Source
func (c *Client) Fetch(ctx context.Context) ([]Snapshot, error) {
	data, err := c.FetchData(ctx)
	if err != nil {
		return nil, err
	}
	return data.Snapshots(), nil
}

// FetchData fetches ADS-B data from the configured source
func (c *Client) FetchData(ctx context.Context) (*RawAircraftData, error) {
	switch c.sourceType {
	case SourceLocal:
		return c.fetchLocalData(ctx)
	case SourceExternal:
		return c.fetchExternalData(ctx)
	default:
		return nil, fmt.Errorf("unknown source type: %s", c.sourceType)
	}
}

func (c *Client) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// fetchLocalData fetches data from the local receiver (tar1090 / readsb aircraft.json)
func (c *Client) fetchLocalData(ctx context.Context) (*RawAircraftData, error) {
	c.logger.Debug("Fetching local ADS-B data",
		logger.String("url", c.localSourceURL),
	)

	body, err := c.get(ctx, c.localSourceURL, nil)
	if err != nil {
		return nil, err
	}

	var data RawAircraftData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	for i := range data.Aircraft {
		data.Aircraft[i].SourceType = SourceLocal
	}

	c.logger.Debug("Successfully fetched local ADS-B data",
		logger.Int("aircraft_count", len(data.Aircraft)),
		logger.Int("message_count", data.Messages),
	)

	return &data, nil
}

// fetchExternalData fetches data from the external API (ADS-B Exchange / RapidAPI style)
func (c *Client) fetchExternalData(ctx context.Context) (*RawAircraftData, error) {
	urlStr := fmt.Sprintf(c.externalSourceURL, c.stationLat, c.stationLon, c.searchRadiusNM)

	c.logger.Debug("Fetching external ADS-B data",
		logger.String("url", urlStr),
		logger.String("host", c.apiHost),
	)

	body, err := c.get(ctx, urlStr, map[string]string{
		"x-rapidapi-host": c.apiHost,
		"x-rapidapi-key":  c.apiKey,
	})
	if err != nil {
		c.logger.Error("External ADS-B request failed", logger.Error(err), logger.String("url", urlStr))
		return nil, err
	}

	// Try parsing as external API format first (ExternalAPIResponse)
	var externalData ExternalAPIResponse
	if err := json.Unmarshal(body, &externalData); err != nil || externalData.AC == nil {
		var data RawAircraftData
		if err2 := json.Unmarshal(body, &data); err2 != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err2)
		}

		c.logger.Debug("Parsed as standard format",
			logger.Int("aircraft_count", len(data.Aircraft)))
		for i := range data.Aircraft {
			data.Aircraft[i].SourceType = SourceExternal
		}
		return &data, nil
	}

	data := externalData.Normalize(float64(time.Now().Unix()))

	c.logger.Debug("Successfully fetched external ADS-B data",
		logger.Int("aircraft_count", len(data.Aircraft)),
	)

	return data, nil
}
