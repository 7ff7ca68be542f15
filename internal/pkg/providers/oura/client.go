// Package oura integrates the Oura ring API: webhook payloads, resource
// fetches and webhook subscription management.
package oura

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CalSync/internal/pkg/providers/apiclient"
)

const subscriptionPath = "/v2/webhook/subscription"

// Subscription is one webhook subscription registered with Oura.
type Subscription struct {
	ID             string `json:"id"`
	CallbackURL    string `json:"callback_url,omitempty"`
	EventType      string `json:"event_type,omitempty"`
	DataType       string `json:"data_type,omitempty"`
	ExpirationTime string `json:"expiration_time,omitempty"`
}

// Client calls the Oura API. Resource fetches use the user's bearer token,
// subscription management uses the application's client id and secret.
type Client struct {
	api          *apiclient.Client
	clientID     string
	clientSecret string
}

func NewClient(baseURL, clientID, clientSecret string, ratePerSec float64, httpClient *http.Client) *Client {
	return &Client{
		api:          apiclient.New("oura", baseURL, ratePerSec, httpClient),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (c *Client) appHeaders() map[string]string {
	return map[string]string{
		"x-client-id":     c.clientID,
		"x-client-secret": c.clientSecret,
	}
}

// FetchResource loads /v2/usercollection/<dataType>/<id> into out.
func (c *Client) FetchResource(ctx context.Context, dataType, objectID, accessToken string, out any) error {
	path := "/v2/usercollection/" + url.PathEscape(dataType) + "/" + url.PathEscape(objectID)
	return c.api.GetJSON(ctx, path, accessToken, out)
}

// ListSubscriptions returns the application's webhook subscriptions. The
// answer must be an array in which every item carries an id.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	body, err := c.api.Do(ctx, http.MethodGet, subscriptionPath, c.appHeaders(), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch webhooks from oura: %w", err)
	}

	var subs []Subscription
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("received %s that is not an array", truncate(body))
	}
	for _, s := range subs {
		if s.ID == "" {
			return nil, fmt.Errorf("received subscription %+v that does not have an id", s)
		}
	}
	return subs, nil
}

// RenewSubscription extends the lease of one subscription.
func (c *Client) RenewSubscription(ctx context.Context, id string) error {
	_, err := c.api.Do(ctx, http.MethodPut, subscriptionPath+"/renew/"+url.PathEscape(id), c.appHeaders(), nil)
	if err != nil {
		return fmt.Errorf("failed to renew oura webhook %s: %w", id, err)
	}
	return nil
}

// RenewAll renews every subscription and stops at the first failure.
func (c *Client) RenewAll(ctx context.Context) error {
	subs, err := c.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	for _, s := range subs {
		if err := c.RenewSubscription(ctx, s.ID); err != nil {
			return err
		}
		log.Debugf("[Oura] renewed webhook subscription %s (%s)", s.ID, s.DataType)
	}
	return nil
}

// Subscribe registers a create subscription for each data type.
func (c *Client) Subscribe(ctx context.Context, callbackURL, verificationToken string, dataTypes []string) ([]Subscription, error) {
	created := make([]Subscription, 0, len(dataTypes))
	for _, dt := range dataTypes {
		payload := map[string]string{
			"callback_url":       callbackURL,
			"verification_token": verificationToken,
			"event_type":         "create",
			"data_type":          dt,
		}
		body, err := c.api.Do(ctx, http.MethodPost, subscriptionPath, c.appHeaders(), payload)
		if err != nil {
			return created, fmt.Errorf("failed to subscribe to %s webhooks: %w", dt, err)
		}
		var sub Subscription
		if err := json.Unmarshal(body, &sub); err != nil {
			return created, fmt.Errorf("decode %s subscription: %w", dt, err)
		}
		created = append(created, sub)
	}
	return created, nil
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
