// Package domain defines the core domain models for ShadowHome.
package domain

import (
	"encoding/json"
	"fmt"
)

// Provider event names as emitted by injected wallets.
const (
	EventNameConnect        = "connect"
	EventNameDisconnect     = "disconnect"
	EventNameAccountChanged = "accountChanged"
)

// EventKind tags a ProviderEvent.
type EventKind int

// Provider event kinds.
const (
	EventConnected EventKind = iota + 1
	EventDisconnected
	EventAccountChanged
)

// String returns the provider-side event name.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return EventNameConnect
	case EventDisconnected:
		return EventNameDisconnect
	case EventAccountChanged:
		return EventNameAccountChanged
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// ProviderEvent is a validated wallet event.
//
//	Connected(identity) | Disconnected | AccountChanged(identity)
//
// Identity is empty for Disconnected. An AccountChanged event without an
// identity never leaves DecodeEvent; it is normalized to Disconnected.
type ProviderEvent struct {
	Kind     EventKind
	Identity Identity
}

// ConnectedEvent returns a Connected event.
func ConnectedEvent(id Identity) ProviderEvent {
	return ProviderEvent{Kind: EventConnected, Identity: id}
}

// DisconnectedEvent returns a Disconnected event.
func DisconnectedEvent() ProviderEvent {
	return ProviderEvent{Kind: EventDisconnected}
}

// AccountChangedEvent returns an AccountChanged event.
func AccountChangedEvent(id Identity) ProviderEvent {
	return ProviderEvent{Kind: EventAccountChanged, Identity: id}
}

// DecodeEvent validates an untyped provider callback into a ProviderEvent.
//
// Payloads may be nil, a string, an Identity, a fmt.Stringer (public key
// objects), raw JSON, or a map carrying "publicKey". An accountChanged event
// with an empty payload means the user disconnected every account and is
// returned as Disconnected.
func DecodeEvent(name string, payload any) (ProviderEvent, error) {
	switch name {
	case EventNameDisconnect:
		return DisconnectedEvent(), nil

	case EventNameConnect:
		raw, err := payloadIdentity(payload)
		if err != nil {
			return ProviderEvent{}, err
		}
		if raw == "" {
			return ProviderEvent{}, ErrInvalidArgument.WithDetails("connect event without public key")
		}
		id, err := ParseIdentity(raw)
		if err != nil {
			return ProviderEvent{}, err
		}
		return ConnectedEvent(id), nil

	case EventNameAccountChanged:
		raw, err := payloadIdentity(payload)
		if err != nil {
			return ProviderEvent{}, err
		}
		if raw == "" {
			return DisconnectedEvent(), nil
		}
		id, err := ParseIdentity(raw)
		if err != nil {
			return ProviderEvent{}, err
		}
		return AccountChangedEvent(id), nil

	default:
		return ProviderEvent{}, ErrInvalidArgument.WithDetails("unknown provider event: " + name)
	}
}

func payloadIdentity(payload any) (string, error) {
	switch p := payload.(type) {
	case nil:
		return "", nil
	case string:
		return p, nil
	case Identity:
		return string(p), nil
	case *Identity:
		if p == nil {
			return "", nil
		}
		return string(*p), nil
	case json.RawMessage:
		return jsonIdentity(p)
	case map[string]any:
		return mapIdentity(p)
	case fmt.Stringer:
		return p.String(), nil
	default:
		return "", ErrInvalidArgument.WithDetails(fmt.Sprintf("unsupported event payload %T", payload))
	}
}

func jsonIdentity(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", ErrInvalidArgument.WithCause(err)
	}
	return mapIdentity(m)
}

func mapIdentity(m map[string]any) (string, error) {
	v, ok := m["publicKey"]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", ErrInvalidArgument.WithDetails("publicKey is not a string")
	}
	return s, nil
}
