package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"server/internal/domain"
)

// DefaultTolerance bounds the accepted age of a signed webhook payload.
const DefaultTolerance = 5 * time.Minute

// Event is a verified webhook event envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object CheckoutSession `json:"object"`
	} `json:"data"`
}

// EventCheckoutCompleted is emitted when a checkout session finishes payment.
const EventCheckoutCompleted = "checkout.session.completed"

// ConstructEvent verifies the Stripe-Signature header against the raw
// payload and returns the decoded event. The header carries a timestamp and
// one or more v1 signatures of "<timestamp>.<payload>" under HMAC-SHA256;
// nothing in the payload is trusted before a signature within the tolerance
// window matches. All verification failures map to domain.ErrSignature.
func ConstructEvent(payload []byte, sigHeader, secret string, tolerance time.Duration) (*Event, error) {
	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return nil, fmt.Errorf("%w: timestamp outside tolerance", domain.ErrSignature)
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, fmt.Errorf("%w: no matching v1 signature", domain.ErrSignature)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("stripe: decode event: %w", err)
	}
	return &event, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if strings.TrimSpace(header) == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", domain.ErrSignature)
	}
	var timestamp int64 = -1
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", domain.ErrSignature)
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: header missing timestamp or v1 signature", domain.ErrSignature)
	}
	return timestamp, signatures, nil
}
