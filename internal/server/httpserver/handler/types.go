package handler

import (
	"time"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
	"github.com/yndnr/shadowhome-go/internal/infra/buildinfo"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// WalletResponse is the body of every wallet route.
type WalletResponse struct {
	domain.Snapshot
	CanAccessDashboard bool `json:"can_access_dashboard"`
}

func walletResponse(s domain.Snapshot) WalletResponse {
	return WalletResponse{Snapshot: s, CanAccessDashboard: s.CanAccessDashboard()}
}

// ChallengeResponse is the body of GET /v1/wallet/challenge.
type ChallengeResponse struct {
	domain.Challenge
	Encoding string `json:"encoding"`
}

// VerifyRequest is the request body for POST /v1/signatures/verify.
// Signature is hex, base58 or base64; Identity is a base58 public key.
type VerifyRequest struct {
	Signature string `json:"signature"`
	Message   string `json:"message"`
	Identity  string `json:"identity"`
}

// VerifyResponse is the response body for POST /v1/signatures/verify.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// EventsResponse is the response body for GET /v1/wallet/events.
type EventsResponse struct {
	Items []EventItem `json:"items"`
	Total int         `json:"total"`
}

// EventItem is one journal entry.
type EventItem struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	OpID     string    `json:"op_id,omitempty"`
	Op       string    `json:"op"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Identity string    `json:"identity,omitempty"`
	Code     string    `json:"code,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string         `json:"status"`
	Time   string         `json:"time"`
	Build  buildinfo.Info `json:"build"`
}

// ReadyResponse is the body of GET /ready.
type ReadyResponse struct {
	Status            string `json:"status"`
	Time              string `json:"time"`
	State             string `json:"state"`
	ProviderAvailable bool   `json:"provider_available"`
	Journal           bool   `json:"journal"`
}
