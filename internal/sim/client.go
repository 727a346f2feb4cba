// Package sim is the client side of the simulation service: connect,
// simulate, streaming simulate and abort, all as JSON over HTTP.
package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"nest-selector/internal/version"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Service endpoints.
const (
	PathConnect  = "/connect"
	PathSimulate = "/simulate"
	PathStream   = "/streamSimulate"
	PathAbort    = "/abortSimulation"
)

// DefaultTimeout bounds non-stream requests.
const DefaultTimeout = 30 * time.Second

var (
	// ErrStatus wraps every non-2xx service response.
	ErrStatus = errors.New("unexpected status")
	// ErrSuperseded is returned by Stream when a newer stream or an abort
	// took over the stream slot.
	ErrSuperseded = errors.New("sim: stream superseded")
)

// Client talks to one simulation service. It holds a single stream slot:
// starting a stream or aborting cancels the stream in flight, so the last
// request wins.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client

	mu       sync.Mutex
	baseURL  string
	cancel   context.CancelFunc
	streamID string
}

// New creates a client for baseURL. timeout applies to every request except
// the stream, which lives until it ends or is superseded.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
	}
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

// SetBaseURL points later requests at a different service.
func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	c.baseURL = strings.TrimRight(u, "/")
	c.mu.Unlock()
}

// Connect sends the network and projections without running a simulation.
func (c *Client) Connect(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.call(ctx, "connect", PathConnect, payload)
}

// Simulate runs a simulation and returns the raw result.
func (c *Client) Simulate(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.call(ctx, "simulate", PathSimulate, payload)
}

// Abort cancels the local stream in flight and asks the service to stop.
func (c *Client) Abort(ctx context.Context) error {
	c.CancelStream()
	_, err := c.call(ctx, "abort", PathAbort, struct{}{})
	return err
}

// CancelStream drops the local stream in flight, if any, without contacting
// the service. The stream returns ErrSuperseded.
func (c *Client) CancelStream() {
	c.mu.Lock()
	c.cancelLocked()
	c.mu.Unlock()
}

// Stream starts a streaming simulation and calls fn for every message, in
// arrival order, until the service closes the stream. It blocks; run it off
// the event thread.
func (c *Client) Stream(ctx context.Context, payload any, fn func(StreamMessage)) error {
	return c.OpenStream(ctx, payload, fn)()
}

// OpenStream takes the stream slot now, superseding any stream in flight, and
// returns the blocking function that runs the stream. Callers that start
// streams from one goroutine get last-write-wins in call order.
func (c *Client) OpenStream(ctx context.Context, payload any, fn func(StreamMessage)) func() error {
	streamCtx, id := c.takeSlot()
	return func() error {
		return c.runStream(ctx, streamCtx, id, payload, fn)
	}
}

func (c *Client) runStream(ctx, streamCtx context.Context, id string, payload any, fn func(StreamMessage)) error {
	if streamCtx.Err() != nil {
		return ErrSuperseded
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(streamCtx, cancel)
	defer stop()
	defer cancel()
	defer c.releaseSlot(id)

	resp, err := c.post(ctx, c.streamClient, "stream", PathStream, id, payload)
	if err != nil {
		return c.streamErr(streamCtx, err)
	}
	defer resp.Body.Close()

	n := 0
	err = DecodeStream(resp.Body, func(msg StreamMessage) error {
		if streamCtx.Err() != nil {
			return ErrSuperseded
		}
		n++
		fn(msg)
		return nil
	})
	if err != nil {
		return c.streamErr(streamCtx, err)
	}
	log.Printf("sim: stream %s finished after %d messages", id, n)
	return nil
}

// takeSlot cancels the current stream, if any, and reserves the slot.
func (c *Client) takeSlot() (context.Context, string) {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	c.mu.Lock()
	c.cancelLocked()
	c.cancel = cancel
	c.streamID = id
	c.mu.Unlock()
	return ctx, id
}

func (c *Client) cancelLocked() {
	if c.cancel == nil {
		return
	}
	log.Printf("sim: superseding stream %s", c.streamID)
	c.cancel()
	c.cancel = nil
	c.streamID = ""
}

func (c *Client) releaseSlot(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streamID == id {
		c.cancel()
		c.cancel = nil
		c.streamID = ""
	}
}

func (c *Client) streamErr(slot context.Context, err error) error {
	if slot.Err() != nil {
		return ErrSuperseded
	}
	return err
}

// Streaming reports whether a stream currently holds the slot.
func (c *Client) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Client) call(ctx context.Context, op, path string, payload any) (json.RawMessage, error) {
	resp, err := c.post(ctx, c.httpClient, op, path, uuid.NewString(), payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sim: %s: read response: %w", op, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return json.RawMessage(body), nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, op, path, id string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sim: %s: encode request: %w", op, err)
	}

	url := c.BaseURL() + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sim: %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-ID", id)

	log.Printf("sim: %s %s (%s, id %s)", op, url, humanize.Bytes(uint64(len(body))), id)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sim: %s: request failed (is the service running at %s?): %w", op, c.BaseURL(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, parseErrorResponse(op, resp)
	}
	return resp, nil
}

func parseErrorResponse(op string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sim: %s: %w %d: read error body: %v", op, ErrStatus, resp.StatusCode, err)
	}
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		if msg := apiErr.Error + apiErr.Message; msg != "" {
			return fmt.Errorf("sim: %s: %w %d: %s", op, ErrStatus, resp.StatusCode, msg)
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("sim: %s: %w %d: %s", op, ErrStatus, resp.StatusCode, msg)
	}
	return fmt.Errorf("sim: %s: %w %d", op, ErrStatus, resp.StatusCode)
}
