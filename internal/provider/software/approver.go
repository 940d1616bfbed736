// Package software implements an in-process ed25519 wallet.
package software

import (
	"context"
	"errors"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
)

// ErrUserRejected is returned when the Approver declines a request.
// The text matches what browser wallets report.
var ErrUserRejected = errors.New("User rejected the request.")

// RequestKind names what the wallet is asked to approve.
type RequestKind string

const (
	RequestConnect RequestKind = "connect"
	RequestSign    RequestKind = "signMessage"
)

// Request is shown to the Approver.
type Request struct {
	Kind     RequestKind
	Identity domain.Identity
	Message  []byte
	Encoding string
}

// Approver stands in for the wallet's confirmation prompt.
// Returning nil approves the request.
type Approver interface {
	Approve(ctx context.Context, req Request) error
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req Request) error

// Approve implements Approver.
func (f ApproverFunc) Approve(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// AutoApprove approves every request.
func AutoApprove() Approver {
	return ApproverFunc(func(ctx context.Context, req Request) error {
		return ctx.Err()
	})
}

// RejectAll declines every request with ErrUserRejected.
func RejectAll() Approver {
	return ApproverFunc(func(context.Context, Request) error {
		return ErrUserRejected
	})
}
