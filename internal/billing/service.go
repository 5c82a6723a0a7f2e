package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers/stripe"
)

// PaymentClient is the Stripe surface the gate depends on.
type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

// PriceConfig describes the single subscription product on offer.
type PriceConfig struct {
	Currency    string
	ProductName string
	Description string
	UnitAmount  int64
}

// Service is the subscription gate: it tracks per-owner payment state and
// authorizes the paid generation action.
type Service struct {
	subs          domain.SubscriptionRepository
	payments      PaymentClient
	price         PriceConfig
	publicBaseURL string
	webhookSecret string
	logger        zerolog.Logger
}

// NewService wires the gate with its collaborators. publicBaseURL is where
// checkout redirects land after payment.
func NewService(
	subs domain.SubscriptionRepository,
	payments PaymentClient,
	price PriceConfig,
	publicBaseURL string,
	webhookSecret string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		subs:          subs,
		payments:      payments,
		price:         price,
		publicBaseURL: publicBaseURL,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// CheckoutResult is the outcome of a checkout-session request.
type CheckoutResult struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Message   string `json:"message"`
}

// IsActive reports whether the owner has a confirmed subscription. Unknown
// owners are inactive.
func (s *Service) IsActive(ctx context.Context, ownerID string) (bool, error) {
	sub, err := s.subs.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.Active, nil
}

// MarkActive records a confirmed payment. Safe to call from both the
// webhook and the verification path, in any order and any number of times.
func (s *Service) MarkActive(ctx context.Context, ownerID, subscriptionRef string) error {
	if err := s.subs.MarkActive(ctx, ownerID, subscriptionRef); err != nil {
		return err
	}
	s.logger.Info().
		Str("owner_id", ownerID).
		Str("subscription_ref", subscriptionRef).
		Msg("billing: subscription active")
	return nil
}

// CreateCheckout starts a checkout session, short-circuiting without a
// provider call when the owner is already subscribed.
func (s *Service) CreateCheckout(ctx context.Context, ownerID, redirectURL string) (CheckoutResult, error) {
	if ownerID == "" {
		return CheckoutResult{}, fmt.Errorf("%w: owner_id is required", domain.ErrInvalidRequest)
	}
	active, err := s.IsActive(ctx, ownerID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if active {
		return CheckoutResult{
			Status:  "active",
			Message: "owner already has an active subscription",
		}, nil
	}

	session, err := s.payments.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		OwnerID:     ownerID,
		SuccessURL:  s.publicBaseURL + redirectURL + "?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.publicBaseURL + "/cancel?session_id={CHECKOUT_SESSION_ID}",
		Currency:    s.price.Currency,
		ProductName: s.price.ProductName,
		Description: s.price.Description,
		UnitAmount:  s.price.UnitAmount,
	})
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return CheckoutResult{
		Status:    "pending",
		SessionID: session.ID,
		URL:       session.URL,
		Message:   "checkout session created, redirect to payment",
	}, nil
}

// VerifyAndActivate is the synchronous confirmation path used by the
// success redirect: it re-checks the session with the provider and
// activates the owner when payment cleared.
func (s *Service) VerifyAndActivate(ctx context.Context, sessionID, ownerID string) (bool, error) {
	if sessionID == "" || ownerID == "" {
		return false, fmt.Errorf("%w: session_id and owner_id are required", domain.ErrInvalidRequest)
	}
	session, err := s.payments.RetrieveSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if !session.Paid() {
		return false, domain.ErrPaymentNotConfirmed
	}
	if err := s.MarkActive(ctx, ownerID, session.Subscription); err != nil {
		return false, err
	}
	return true, nil
}

// HandleWebhook verifies a payment-provider webhook and applies it. The
// signature check happens before the payload is trusted in any way.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := stripe.ConstructEvent(payload, sigHeader, s.webhookSecret, stripe.DefaultTolerance)
	if err != nil {
		return err
	}
	return s.HandleEvent(ctx, event)
}

// HandleEvent applies one verified payment event.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event.Type != stripe.EventCheckoutCompleted {
		s.logger.Debug().Str("type", event.Type).Msg("billing: ignoring webhook event")
		return nil
	}
	ownerID := event.Data.Object.Metadata["owner_id"]
	if ownerID == "" {
		return fmt.Errorf("%w: completed session is missing owner metadata", domain.ErrMalformedCallback)
	}
	return s.MarkActive(ctx, ownerID, event.Data.Object.Subscription)
}
