// Package strava integrates the Strava API: webhook payloads and activity
// fetches.
package strava

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ManuelReschke/CalSync/internal/pkg/providers/apiclient"
)

// Client fetches activities with the athlete's bearer token.
type Client struct {
	api *apiclient.Client
}

func NewClient(baseURL string, ratePerSec float64, httpClient *http.Client) *Client {
	return &Client{api: apiclient.New("strava", baseURL, ratePerSec, httpClient)}
}

// FetchActivity loads /activities/<id>.
func (c *Client) FetchActivity(ctx context.Context, objectID, accessToken string) (*Activity, error) {
	var a Activity
	if err := c.api.GetJSON(ctx, "/activities/"+url.PathEscape(objectID), accessToken, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
