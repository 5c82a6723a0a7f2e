package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

// Options configures the Replicate client.
type Options struct {
	APIToken       string
	BaseURL        string
	TrainerOwner   string
	TrainerModel   string
	TrainerVersion string
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
	PollInterval   time.Duration
}

// Client performs HTTP calls to the Replicate trainings and predictions API.
type Client struct {
	apiToken       string
	baseURL        string
	trainerOwner   string
	trainerModel   string
	trainerVersion string
	httpClient     *http.Client
	logger         zerolog.Logger
	pollInterval   time.Duration
}

// Training is the normalized result of a training submission.
type Training struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

type apiError struct {
	Detail string `json:"detail"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, ErrMissingAPIToken
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	trainerOwner := opts.TrainerOwner
	if trainerOwner == "" {
		trainerOwner = "ostris"
	}
	trainerModel := opts.TrainerModel
	if trainerModel == "" {
		trainerModel = "flux-dev-lora-trainer"
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		apiToken:       strings.TrimSpace(opts.APIToken),
		baseURL:        baseURL,
		trainerOwner:   trainerOwner,
		trainerModel:   trainerModel,
		trainerVersion: opts.TrainerVersion,
		httpClient:     httpClient,
		logger:         logger,
		pollInterval:   pollInterval,
	}, nil
}

// SubmitTraining starts a fine-tuning run against the configured trainer
// model. callbackURL receives the provider's completion webhook; options is
// passed through as training input.
func (c *Client) SubmitTraining(ctx context.Context, callbackURL string, options map[string]any) (string, error) {
	payload := map[string]any{
		"input":                 options,
		"webhook":               callbackURL,
		"webhook_events_filter": []string{"completed"},
	}
	endpoint := fmt.Sprintf("%s/models/%s/%s/versions/%s/trainings",
		c.baseURL, c.trainerOwner, c.trainerModel, c.trainerVersion)

	var training Training
	if err := c.post(ctx, endpoint, payload, &training); err != nil {
		return "", err
	}
	c.logger.Info().
		Str("training_id", training.ID).
		Str("status", training.Status).
		Msg("replicate: training submitted")
	return training.ID, nil
}

// RunModel executes one prediction against a model version and blocks until
// the provider reports a terminal status, returning the output URLs.
func (c *Client) RunModel(ctx context.Context, version string, input map[string]any) ([]string, error) {
	payload := map[string]any{
		"version": version,
		"input":   input,
	}
	var pred prediction
	if err := c.post(ctx, c.baseURL+"/predictions", payload, &pred); err != nil {
		return nil, err
	}

	for !terminalPrediction(pred.Status) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
		if err := c.get(ctx, c.baseURL+"/predictions/"+pred.ID, &pred); err != nil {
			return nil, err
		}
	}

	if pred.Status != "succeeded" {
		if pred.Error != "" {
			return nil, fmt.Errorf("replicate: prediction %s: %s", pred.Status, pred.Error)
		}
		return nil, fmt.Errorf("replicate: prediction %s", pred.Status)
	}
	return decodeOutput(pred.Output)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("replicate: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("replicate: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail apiError
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
			return fmt.Errorf("replicate: status %d: %s", resp.StatusCode, detail.Detail)
		}
		return fmt.Errorf("replicate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("replicate: decode response: %w", err)
	}
	return nil
}

func terminalPrediction(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// decodeOutput normalizes prediction output, which the API returns either
// as a list of URLs or a single URL string.
func decodeOutput(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	return nil, errors.New("replicate: unrecognized prediction output shape")
}
