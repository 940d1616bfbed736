// Package bridge relays wallet calls to a browser page over a websocket.
package bridge

import (
	"encoding/json"
	"fmt"
)

// Methods sent to the page.
const (
	MethodConnect     = "connect"
	MethodDisconnect  = "disconnect"
	MethodSignMessage = "signMessage"
)

// EventHello is the first frame a page must send.
const EventHello = "hello"

// Frame is the single wire envelope for requests, responses and events.
type Frame struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params any             `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`

	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hello describes the page's wallet when it attaches.
type Hello struct {
	IsPhantom   bool   `json:"isPhantom"`
	IsConnected bool   `json:"isConnected"`
	PublicKey   string `json:"publicKey"`
}

type connectParams struct {
	OnlyIfTrusted bool `json:"onlyIfTrusted"`
}

type connectResult struct {
	PublicKey string `json:"publicKey"`
}

type signParams struct {
	Message []byte `json:"message"`
	Display string `json:"display"`
}

type signResult struct {
	Signature []byte `json:"signature"`
	PublicKey string `json:"publicKey"`
}

// RemoteError is an error reported by the page's wallet. Its message is the
// wallet's own text, e.g. "User rejected the request.".
type RemoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("wallet error %d", e.Code)
	}
	return e.Message
}
