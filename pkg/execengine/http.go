package execengine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPConfig is the parsed shape of an http_client primitive's merged
// config.
type HTTPConfig struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Mode    string // "sync" (default) or "stream"
}

// DispatchHTTP issues the request described by cfg. In sync mode it
// reads the full response into ExecutionResult.Body; in stream mode it
// parses the response as SSE, fanning each event out to every sink,
// tolerating a mid-stream read error by closing all sinks and returning
// whatever was accumulated.
func DispatchHTTP(ctx context.Context, client *http.Client, cfg HTTPConfig, sinks []Sink, policy RetryPolicy) (*ExecutionResult, error) {
	started := time.Now()

	if !policy.Breaker.Allow() {
		return nil, &ExecutionError{Kind: ErrConnection, Err: fmt.Errorf("circuit breaker open")}
	}

	var resp *http.Response
	var err error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if waitErr := policy.Wait(ctx); waitErr != nil {
			return nil, &ExecutionError{Kind: ErrConnection, Err: waitErr}
		}

		req, reqErr := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bytes.NewReader(cfg.Body))
		if reqErr != nil {
			return nil, &ExecutionError{Kind: ErrConnection, Err: reqErr}
		}
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err = client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			policy.Breaker.Success()
			break
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		if attempt == policy.MaxRetries {
			policy.Breaker.Failure()
			if err == nil {
				err = fmt.Errorf("http status %d after %d attempts", resp.StatusCode, attempt+1)
			}
			return nil, &ExecutionError{Kind: ErrConnection, Err: err}
		}
		select {
		case <-time.After(policy.Backoff(attempt)):
		case <-ctx.Done():
			return nil, &ExecutionError{Kind: ErrConnection, Err: ctx.Err()}
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if cfg.Mode == "stream" {
		return dispatchStream(resp, sinks, started)
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, &ExecutionError{Kind: ErrConnection, Err: readErr}
	}
	return &ExecutionResult{
		Success:    resp.StatusCode < 400,
		DurationMS: time.Since(started).Milliseconds(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

func dispatchStream(resp *http.Response, sinks []Sink, started time.Time) (*ExecutionResult, error) {
	ret := NewReturnSink(0)
	allSinks := append([]Sink{ret}, sinks...)

	parseErr := ParseSSE(resp.Body, func(event StreamEvent) error {
		for _, s := range allSinks {
			if err := s.Write(event); err != nil {
				return err
			}
		}
		return nil
	})

	CloseAll(allSinks)

	result := &ExecutionResult{
		DurationMS: time.Since(started).Milliseconds(),
		StatusCode: resp.StatusCode,
		Events:     ret.Events(),
	}
	if parseErr != nil {
		// Mid-stream ConnectionError: tolerate it, return what we have.
		result.Success = false
		result.Stderr = parseErr.Error()
		return result, nil
	}
	result.Success = resp.StatusCode < 400
	return result, nil
}
