/**
 * @description
 * HTTP Client for the Coinbase spot price API.
 * The one external collaborator of the game: an opaque price oracle.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - internal/config
 */

package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lakbychance/guess-btc/internal/config"
)

const (
	DefaultTimeout = 10 * time.Second
)

type Client struct {
	BaseURL    string
	ProductID  string
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:   cfg.Coinbase.BaseURL,
		ProductID: cfg.Coinbase.ProductID,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// spotPriceResponse mirrors GET /v2/prices/{pair}/spot
type spotPriceResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Base     string `json:"base"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// GetSpotPrice fetches the current spot price for the configured product
func (c *Client) GetSpotPrice(ctx context.Context) (float64, error) {
	u := fmt.Sprintf("%s/v2/prices/%s/spot", c.BaseURL, c.ProductID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coinbase api error: status %d", resp.StatusCode)
	}

	var spot spotPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&spot); err != nil {
		return 0, err
	}

	price, err := strconv.ParseFloat(spot.Data.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("coinbase returned unparsable amount %q: %w", spot.Data.Amount, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("coinbase returned non-positive price %f", price)
	}

	return price, nil
}
