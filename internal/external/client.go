package external

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/felipe-nonato/task-manager/internal/config"
)

// Payload is the wire format accepted by the external ticketing endpoint.
// Field names are fixed by that system's contract.
type Payload struct {
	Origin       string `json:"origin"`
	UnixClock    string `json:"SRC_UNIX_CLOCK"`
	Priority     string `json:"SRC_PRIORITY"`
	Label        string `json:"SRC_LABEL"`
	Description  string `json:"SRC_DESCRIPTION"`
	ProblemValue string `json:"SRC_PROBLEM_VALUE"`
	Resource     string `json:"SRC_RSOURCE"`
	SubResource  string `json:"SRC_SUB_RESOURCE"`
	Env          string `json:"SRC_ENV"`
	Tower        string `json:"SRC_TOWER"`
	ProblemType  string `json:"SRC_PROBLEM_TYPE"`
}

// Result holds a successful (2xx) response from the external endpoint.
type Result struct {
	Status  int
	Body    []byte
	EventID string
}

// StatusError reports a non-2xx response, keeping the raw body for the audit
// trail stored with the ticket.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("external endpoint returned status %d", e.Status)
}

// Client posts ticket payloads to the external ticketing endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// NewClient builds the outbound client. When cfg.InsecureSkipVerify is set,
// certificate verification is relaxed on this client's transport only; the
// external endpoint runs with a self-signed chain in some deployments.
func NewClient(cfg config.ForwarderConfig) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout(),
		},
		url:    cfg.URL,
		apiKey: cfg.APIKey,
	}
}

// Forward posts the payload and returns the parsed outcome. Network errors
// and timeouts surface as transport errors; non-2xx statuses surface as
// *StatusError carrying the response body.
func (c *Client) Forward(ctx context.Context, payload Payload) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Body: respBody}
	}

	result := &Result{Status: resp.StatusCode, Body: respBody}
	var parsed struct {
		EventID string `json:"eventId"`
	}
	if err := json.Unmarshal(respBody, &parsed); err == nil {
		result.EventID = parsed.EventID
	}
	return result, nil
}
