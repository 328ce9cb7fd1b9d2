package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/humaidq/arbnco-proxy/internal/metrics"
)

// FetchErrorKind classifies why an upstream call failed.
type FetchErrorKind int

const (
	// KindTransport covers network failures, timeouts and an open circuit.
	KindTransport FetchErrorKind = iota
	// KindUpstream means the API answered with a non-2xx status.
	KindUpstream
	// KindDecode means the body was not a conformant readings payload.
	KindDecode
)

func (k FetchErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUpstream:
		return "upstream"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FetchError is returned by every failed upstream fetch.
type FetchError struct {
	Kind   FetchErrorKind
	Status int // set for KindUpstream
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindUpstream && e.Err != nil:
		return fmt.Sprintf("upstream: status %d: %v", e.Status, e.Err)
	case e.Kind == KindUpstream:
		return fmt.Sprintf("upstream: status %d", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidArgument is returned when the site id or token is empty.
	ErrInvalidArgument = errors.New("site id and auth token are required")

	errNoHTTPClient = errors.New("http client not configured")
)

// breakerSettings returns circuit breaker settings that only trip on failures
// which say something about upstream health: transport errors, 429 and 5xx.
func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     1 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var fe *FetchError
			if errors.As(err, &fe) && fe.Kind == KindUpstream {
				return fe.Status != http.StatusTooManyRequests && fe.Status < 500
			}
			return false
		},
	}
}

// doRequestWithBreaker executes req exactly once through the circuit breaker.
// No retries are made here; the caller owns the retry policy.
func doRequestWithBreaker(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	req *http.Request,
) (*http.Response, error) {
	if client == nil {
		return nil, &FetchError{Kind: KindTransport, Err: errNoHTTPClient}
	}

	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		start := time.Now()
		resp, execErr := client.Do(req)
		metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
		if execErr != nil {
			metrics.UpstreamCallsTotal.WithLabelValues("error").Inc()
			return nil, &FetchError{Kind: KindTransport, Err: execErr}
		}

		metrics.UpstreamCallsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer resp.Body.Close()
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			fe := &FetchError{Kind: KindUpstream, Status: resp.StatusCode}
			if msg := strings.TrimSpace(string(b)); msg != "" {
				fe.Err = errors.New(msg)
			}
			return nil, fe
		}

		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &FetchError{Kind: KindTransport, Err: fmt.Errorf("circuit breaker open: %w", err)}
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, &FetchError{Kind: KindTransport, Err: fmt.Errorf("unexpected result type from circuit breaker")}
	}
	return resp, nil
}
