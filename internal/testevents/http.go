package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/okian/rankset/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON decodes a 200 response from url into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// outcome is the service's verdict on one POST /commands.
type outcome uint8

const (
	outcomeFailed    outcome = iota // transport error or 5xx
	outcomeAccepted                 // 202, queued for the writer
	outcomeDuplicate                // 200, request id already seen
	outcomeRejected                 // 4xx, refused at intake
)

// submitCommands submits commands concurrently and reports, per command,
// whether the service queued it. Each worker owns whole players.
func submitCommands(ctx context.Context, config *Config, commands []Command, stats *Stats) ([]bool, error) {
	groups := groupByPlayer(commands)
	logger.Get().Info(ctx, "submitting commands",
		logger.Int("commands", len(commands)),
		logger.Int("players", len(groups)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/commands"
	accepted := make([]bool, len(commands))

	var submitted, acked, duplicate, rejected, failed atomic.Int64
	count := func(o outcome) {
		submitted.Add(1)
		switch o {
		case outcomeAccepted:
			acked.Add(1)
		case outcomeDuplicate:
			duplicate.Add(1)
		case outcomeRejected:
			rejected.Add(1)
		default:
			failed.Add(1)
		}
	}

	done := make(chan struct{})
	var progress conc.WaitGroup
	progress.Go(func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if config.Verbose {
					logger.Get().Info(ctx, "submission progress",
						logger.Int64("submitted", submitted.Load()),
						logger.Int64("accepted", acked.Load()),
						logger.Int64("duplicate", duplicate.Load()),
						logger.Int64("rejected", rejected.Load()),
						logger.Int64("failed", failed.Load()))
				}
			}
		}
	})

	p := pool.New().WithMaxGoroutines(config.Workers).WithContext(ctx)
	for _, group := range groups {
		p.Go(func(ctx context.Context) error {
			for _, i := range group {
				if err := ctx.Err(); err != nil {
					return err
				}
				o := submitSingleCommand(ctx, client, url, commands[i])
				count(o)
				accepted[i] = o == outcomeAccepted
				if commands[i].Resend {
					// A resend after a refusal may be the copy that gets queued.
					again := submitSingleCommand(ctx, client, url, commands[i])
					count(again)
					accepted[i] = accepted[i] || again == outcomeAccepted
				}
			}
			return nil
		})
	}
	err := p.Wait()
	close(done)
	progress.Wait()

	stats.CommandsSubmitted = int(submitted.Load())
	stats.CommandsAccepted = int(acked.Load())
	stats.CommandsDuplicate = int(duplicate.Load())
	stats.CommandsRejected = int(rejected.Load())
	stats.CommandsFailed = int(failed.Load())

	logger.Get().Info(ctx, "command submission completed",
		logger.Int("accepted", stats.CommandsAccepted),
		logger.Int("duplicate", stats.CommandsDuplicate),
		logger.Int("rejected", stats.CommandsRejected),
		logger.Int("failed", stats.CommandsFailed))

	if err != nil {
		return nil, fmt.Errorf("submission interrupted: %w", err)
	}
	return accepted, nil
}

// submitSingleCommand submits a single command and classifies the response.
func submitSingleCommand(ctx context.Context, client *HTTPClient, url string, c Command) outcome {
	resp, err := client.Post(ctx, url, c)
	if err != nil {
		return outcomeFailed
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return outcomeFailed
	}

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return outcomeAccepted
	case resp.StatusCode == http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && !ack.Duplicate {
			return outcomeFailed
		}
		return outcomeDuplicate
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}
