package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers/stripe"
)

type fakeSubRepo struct {
	subs map[string]*domain.Subscription
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{subs: map[string]*domain.Subscription{}}
}

func (r *fakeSubRepo) MarkActive(_ context.Context, ownerID, subscriptionRef string) error {
	now := time.Now()
	if sub, ok := r.subs[ownerID]; ok {
		sub.Active = true
		sub.SubscriptionRef = subscriptionRef
		sub.UpdatedAt = now
		return nil
	}
	r.subs[ownerID] = &domain.Subscription{
		OwnerID:         ownerID,
		Active:          true,
		SubscriptionRef: subscriptionRef,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return nil
}

func (r *fakeSubRepo) Get(_ context.Context, ownerID string) (*domain.Subscription, error) {
	sub, ok := r.subs[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *sub
	return &clone, nil
}

type fakePayments struct {
	createCalls   int
	retrieveCalls int
	session       *stripe.CheckoutSession
	createErr     error
	retrieveErr   error
}

func (p *fakePayments) CreateCheckoutSession(_ context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSession, error) {
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	return &stripe.CheckoutSession{
		ID:       "cs_test_1",
		URL:      "https://checkout.example.com/cs_test_1",
		Metadata: map[string]string{"owner_id": params.OwnerID},
	}, nil
}

func (p *fakePayments) RetrieveSession(_ context.Context, _ string) (*stripe.CheckoutSession, error) {
	p.retrieveCalls++
	if p.retrieveErr != nil {
		return nil, p.retrieveErr
	}
	return p.session, nil
}

func newTestService(repo *fakeSubRepo, payments *fakePayments) *Service {
	price := PriceConfig{Currency: "usd", ProductName: "Subscription", Description: "Monthly plan", UnitAmount: 3900}
	return NewService(repo, payments, price, "https://app.example.com", "whsec_test", zerolog.Nop())
}

func TestIsActiveUnknownOwner(t *testing.T) {
	svc := newTestService(newFakeSubRepo(), &fakePayments{})
	active, err := svc.IsActive(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("is active: %v", err)
	}
	if active {
		t.Fatal("unknown owner must be inactive")
	}
}

func TestMarkActiveIsIdempotent(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &fakePayments{})
	ctx := context.Background()

	if err := svc.MarkActive(ctx, "alice", "sub_1"); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := svc.MarkActive(ctx, "alice", "sub_2"); err != nil {
		t.Fatalf("second mark: %v", err)
	}
	active, _ := svc.IsActive(ctx, "alice")
	if !active {
		t.Fatal("owner must be active after MarkActive")
	}
	if repo.subs["alice"].SubscriptionRef != "sub_2" {
		t.Fatalf("latest ref must win, got %q", repo.subs["alice"].SubscriptionRef)
	}
}

func TestCreateCheckoutShortCircuitsForActiveOwner(t *testing.T) {
	repo := newFakeSubRepo()
	payments := &fakePayments{}
	svc := newTestService(repo, payments)
	ctx := context.Background()

	_ = svc.MarkActive(ctx, "alice", "sub_1")

	result, err := svc.CreateCheckout(ctx, "alice", "/success")
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if result.Status != "active" {
		t.Fatalf("expected active short-circuit, got %+v", result)
	}
	if payments.createCalls != 0 {
		t.Fatal("payment collaborator must not be contacted for an active owner")
	}
}

func TestCreateCheckoutCreatesSession(t *testing.T) {
	svc := newTestService(newFakeSubRepo(), &fakePayments{})
	result, err := svc.CreateCheckout(context.Background(), "alice", "/success")
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if result.Status != "pending" || result.SessionID != "cs_test_1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCreateCheckoutRequiresOwner(t *testing.T) {
	svc := newTestService(newFakeSubRepo(), &fakePayments{})
	if _, err := svc.CreateCheckout(context.Background(), "", "/success"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestVerifyAndActivatePaidSession(t *testing.T) {
	repo := newFakeSubRepo()
	payments := &fakePayments{session: &stripe.CheckoutSession{ID: "cs_1", PaymentStatus: "paid", Subscription: "sub_9"}}
	svc := newTestService(repo, payments)
	ctx := context.Background()

	ok, err := svc.VerifyAndActivate(ctx, "cs_1", "alice")
	if err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}
	active, _ := svc.IsActive(ctx, "alice")
	if !active {
		t.Fatal("owner must be active after verification")
	}
	if repo.subs["alice"].SubscriptionRef != "sub_9" {
		t.Fatalf("subscription ref not recorded: %+v", repo.subs["alice"])
	}
}

func TestVerifyAndActivateUnpaidSession(t *testing.T) {
	payments := &fakePayments{session: &stripe.CheckoutSession{ID: "cs_1", PaymentStatus: "unpaid"}}
	svc := newTestService(newFakeSubRepo(), payments)

	ok, err := svc.VerifyAndActivate(context.Background(), "cs_1", "alice")
	if ok || !errors.Is(err, domain.ErrPaymentNotConfirmed) {
		t.Fatalf("expected ErrPaymentNotConfirmed, got ok=%v err=%v", ok, err)
	}
	active, _ := svc.IsActive(context.Background(), "alice")
	if active {
		t.Fatal("unpaid session must not activate the owner")
	}
}

func TestVerifyAndActivateUpstreamFailure(t *testing.T) {
	payments := &fakePayments{retrieveErr: errors.New("connection reset")}
	svc := newTestService(newFakeSubRepo(), payments)

	if _, err := svc.VerifyAndActivate(context.Background(), "cs_1", "alice"); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestHandleEventActivatesOwnerFromMetadata(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &fakePayments{})

	event := &stripe.Event{Type: stripe.EventCheckoutCompleted}
	event.Data.Object = stripe.CheckoutSession{Subscription: "sub_5", Metadata: map[string]string{"owner_id": "bob"}}

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	active, _ := svc.IsActive(context.Background(), "bob")
	if !active {
		t.Fatal("completed checkout must activate the owner")
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &fakePayments{})

	event := &stripe.Event{Type: "invoice.paid"}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.subs) != 0 {
		t.Fatal("unrelated events must not mutate state")
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	repo := newFakeSubRepo()
	svc := newTestService(repo, &fakePayments{})

	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"metadata":{"owner_id":"mallory"}}}}`)
	err := svc.HandleWebhook(context.Background(), payload, "t=123,v1=deadbeef")
	if !errors.Is(err, domain.ErrSignature) {
		t.Fatalf("expected ErrSignature, got %v", err)
	}
	if len(repo.subs) != 0 {
		t.Fatal("unverified payload must not reach state")
	}
}
