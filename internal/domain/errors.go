package domain

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflicting state")
	ErrNotReady            = errors.New("training still in progress")
	ErrTrainingFailed      = errors.New("training failed")
	ErrMalformedCallback   = errors.New("malformed callback")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrSignature           = errors.New("signature verification failed")
)
