// Package calendar writes normalized entries to the user's calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
)

// Entry is the provider independent calendar event.
type Entry struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Validate rejects entries the calendar would refuse anyway.
func (e Entry) Validate() error {
	if e.Summary == "" {
		return &apperror.ValidationError{Message: "calendar entry has no summary"}
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return &apperror.ValidationError{Message: "calendar entry needs start and end"}
	}
	if e.End.Before(e.Start) {
		return &apperror.ValidationError{Message: "calendar entry ends before it starts"}
	}
	return nil
}

// Sink creates calendar events with a caller supplied access token. A 401
// from the calendar surfaces as *apperror.UpstreamError with StatusCode 401.
type Sink interface {
	CreateEvent(ctx context.Context, accessToken, calendarID string, entry Entry) (string, error)
}

// GoogleSink writes to Google Calendar through the v3 API client.
type GoogleSink struct {
	endpoint   string
	httpClient *http.Client
}

// NewGoogleSink returns a sink. endpoint overrides the API base URL and may
// be empty; httpClient may be nil.
func NewGoogleSink(endpoint string, httpClient *http.Client) *GoogleSink {
	return &GoogleSink{endpoint: endpoint, httpClient: httpClient}
}

func (s *GoogleSink) service(ctx context.Context, accessToken string) (*gcal.Service, error) {
	base := context.Background()
	if s.httpClient != nil {
		base = context.WithValue(base, oauth2.HTTPClient, s.httpClient)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(base, ts))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	return gcal.NewService(ctx, opts...)
}

func (s *GoogleSink) CreateEvent(ctx context.Context, accessToken, calendarID string, entry Entry) (string, error) {
	if err := entry.Validate(); err != nil {
		return "", err
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	svc, err := s.service(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("create calendar client: %w", err)
	}

	event := &gcal.Event{
		Summary:     entry.Summary,
		Description: entry.Description,
		Start:       &gcal.EventDateTime{DateTime: entry.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: entry.End.Format(time.RFC3339)},
	}
	created, err := svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return "", &apperror.UpstreamError{Service: "calendar", StatusCode: gerr.Code, Body: gerr.Body}
		}
		return "", fmt.Errorf("create calendar event: %w", err)
	}
	return created.Id, nil
}
