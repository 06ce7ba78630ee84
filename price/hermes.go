package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultHermesEndpoint is the public Pyth Hermes service.
	DefaultHermesEndpoint = "https://hermes.pyth.network"
	// SOLUSDFeedID is the Pyth SOL/USD feed.
	SOLUSDFeedID = "0xef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"

	latestPricePath = "v2/updates/price/latest"
	requestTimeout  = 5 * time.Second
)

// HermesFeed reads prices from a Pyth Hermes endpoint.
type HermesFeed struct {
	endpoint string
	client   *http.Client
}

// NewHermesFeed returns a feed for the given endpoint.
func NewHermesFeed(endpoint string) *HermesFeed {
	return &HermesFeed{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{},
	}
}

type hermesPrice struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

type hermesParsed struct {
	ID    string      `json:"id"`
	Price hermesPrice `json:"price"`
}

type hermesResponse struct {
	Parsed []hermesParsed `json:"parsed"`
}

// LatestPrice implements Feed.
func (h *HermesFeed) LatestPrice(ctx context.Context, feedID string) (*FeedPrice, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	q := url.Values{}
	q.Add("ids[]", feedID)
	q.Set("parsed", "true")
	u := fmt.Sprintf("%s/%s?%s", h.endpoint, latestPricePath, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request hermes")
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("hermes returned %d: %s", resp.StatusCode, string(body))
	}

	hr := &hermesResponse{}
	if err := json.Unmarshal(body, hr); err != nil {
		return nil, errors.Wrap(err, "decode hermes response")
	}

	if len(hr.Parsed) == 0 {
		return nil, errors.Errorf("hermes returned no price for %s", feedID)
	}

	p := hr.Parsed[0].Price
	return &FeedPrice{
		Mantissa:    p.Price,
		Exponent:    p.Expo,
		PublishTime: time.Unix(p.PublishTime, 0).UTC(),
	}, nil
}
