// Package dispatch triggers processing of a freshly stored event without
// holding up the webhook response.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/processor"
)

// ProcessPath is the internal trigger endpoint.
const ProcessPath = "/api/process-webhook-event"

// Status is the outcome of a raced dispatch as seen by the receiver.
type Status string

const (
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
)

// Dispatcher hands an event key to the processor.
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.DispatchRequest) error
}

// HTTPDispatcher posts to the internal trigger endpoint of a deployment.
type HTTPDispatcher struct {
	endpoint string
	secret   string
	client   *http.Client
}

// NewHTTPDispatcher targets baseURL + ProcessPath. secret is sent as bearer
// token when not empty.
func NewHTTPDispatcher(baseURL, secret string, client *http.Client) *HTTPDispatcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPDispatcher{
		endpoint: strings.TrimRight(baseURL, "/") + ProcessPath,
		secret:   secret,
		client:   client,
	}
}

// Dispatch returns nil once the trigger endpoint answered, whatever the
// processing outcome. Only transport failures are errors.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, req models.DispatchRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if d.secret != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.secret)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("trigger processing of %s: %w", req.EventKey, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	log.Infof("[Dispatch] triggered processing for %s, status: %d", req.EventKey, resp.StatusCode)
	return nil
}

// EventProcessor is implemented by *processor.Processor.
type EventProcessor interface {
	Process(ctx context.Context, key string, hint models.Provider) (*processor.Result, error)
}

// LocalDispatcher runs the processor in this process.
type LocalDispatcher struct {
	proc EventProcessor
}

func NewLocalDispatcher(proc EventProcessor) *LocalDispatcher {
	return &LocalDispatcher{proc: proc}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, req models.DispatchRequest) error {
	hint, _ := models.ParseProvider(req.Source)
	res, err := d.proc.Process(ctx, req.EventKey, hint)
	if err != nil {
		return err
	}
	log.Infof("[Dispatch] %s: %s", req.EventKey, res.Outcome)
	return nil
}

// Race starts the dispatch in the background and waits at most wait for it.
// The dispatch keeps running after a timeout and is detached from the
// caller's cancellation; the sweeper picks up whatever it does not finish.
func Race(ctx context.Context, d Dispatcher, req models.DispatchRequest, wait time.Duration) Status {
	done := make(chan error, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		done <- d.Dispatch(bg, req)
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			log.Errorf("[Dispatch] failed to trigger event processing for %s: %v", req.EventKey, err)
			return StatusFailed
		}
		return StatusSent
	case <-timer.C:
		log.Infof("[Dispatch] processing trigger for %s timed out (request likely sent)", req.EventKey)
		return StatusTimedOut
	}
}
