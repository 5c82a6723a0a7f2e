package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrMissingSecretKey indicates that the client was configured without credentials.
var ErrMissingSecretKey = errors.New("stripe: secret key is required")

// Options configures the Stripe client.
type Options struct {
	SecretKey      string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Stripe Checkout API.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// CheckoutParams describes a subscription checkout session to create.
type CheckoutParams struct {
	OwnerID     string
	SuccessURL  string
	CancelURL   string
	Currency    string
	ProductName string
	Description string
	UnitAmount  int64
}

// CheckoutSession is the normalized session representation.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	Subscription  string            `json:"subscription"`
	Metadata      map[string]string `json:"metadata"`
}

// Paid reports whether the session's payment completed.
func (s *CheckoutSession) Paid() bool {
	return s != nil && s.PaymentStatus == "paid"
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SecretKey) == "" {
		return nil, ErrMissingSecretKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		secretKey:  strings.TrimSpace(opts.SecretKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CreateCheckoutSession creates a monthly subscription checkout session
// with the owner recorded in metadata so the completion webhook can
// recover it.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", params.Currency)
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	form.Set("line_items[0][price_data][product_data][description]", params.Description)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.UnitAmount, 10))
	form.Set("line_items[0][price_data][recurring][interval]", "month")
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("metadata[owner_id]", params.OwnerID)

	var session CheckoutSession
	if err := c.postForm(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	c.logger.Info().
		Str("session_id", session.ID).
		Str("owner_id", params.OwnerID).
		Msg("stripe: checkout session created")
	return &session, nil
}

// RetrieveSession fetches a checkout session by ID.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("stripe: build request: %w", err)
	}
	var session CheckoutSession
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("stripe: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("stripe: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail apiError
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Error.Message != "" {
			return fmt.Errorf("stripe: %s (%s)", detail.Error.Message, detail.Error.Type)
		}
		return fmt.Errorf("stripe: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("stripe: decode response: %w", err)
	}
	return nil
}
