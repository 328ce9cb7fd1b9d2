package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"

	"github.com/humaidq/arbnco-proxy/internal/sensor"
)

// DefaultBaseURL is the production ARBNCO API host.
const DefaultBaseURL = "https://well.arbnco.com"

var validate = validator.New()

// ArbncoClient implements the sensor.Fetcher interface for the ARBNCO readings API.
type ArbncoClient struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewArbncoClient creates a client for baseURL. An empty baseURL selects DefaultBaseURL.
func NewArbncoClient(client *http.Client, baseURL string) *ArbncoClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &ArbncoClient{
		name:    "arbnco",
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		circuit: gobreaker.NewCircuitBreaker(breakerSettings("arbnco")),
	}
}

func (p *ArbncoClient) Name() string {
	return p.name
}

// Fetch performs one GET of the site's readings. Every call consumes one unit
// of the upstream rate limit.
func (p *ArbncoClient) Fetch(ctx context.Context, siteID, authToken string) (sensor.RawSensorResponse, error) {
	if siteID == "" || authToken == "" {
		return sensor.RawSensorResponse{}, ErrInvalidArgument
	}

	u := fmt.Sprintf("%s/api/v1/sites/%s/readings", p.baseURL, url.PathEscape(siteID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return sensor.RawSensorResponse{}, &FetchError{Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", authToken)
	req.Header.Set("Accept", "application/json")

	resp, err := doRequestWithBreaker(ctx, p.client, p.circuit, req)
	if err != nil {
		return sensor.RawSensorResponse{}, err
	}
	defer resp.Body.Close()

	var payload sensor.RawSensorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		// A body cut short by the client timeout is a transport failure.
		var ne net.Error
		if ctx.Err() != nil || (errors.As(err, &ne) && ne.Timeout()) {
			return sensor.RawSensorResponse{}, &FetchError{Kind: KindTransport, Err: err}
		}
		return sensor.RawSensorResponse{}, &FetchError{Kind: KindDecode, Err: err}
	}
	if err := validate.Struct(payload); err != nil {
		return sensor.RawSensorResponse{}, &FetchError{Kind: KindDecode, Err: err}
	}

	return payload, nil
}
