package connection

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamHandshakeTimeout = 10 * time.Second
	streamWriteTimeout     = 10 * time.Second
)

// StreamURL converts an API path into a websocket URL on the same server.
func (c *HTTPClient) StreamURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// DialStream opens a websocket to path. The token goes in the
// Authorization header, which non-browser clients can set.
func (c *HTTPClient) DialStream(ctx context.Context, path string) (*websocket.Conn, error) {
	target, err := c.StreamURL(path)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: streamHandshakeTimeout,
		TLSClientConfig:  c.tls,
		Proxy:            http.ProxyFromEnvironment,
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: strings.ToLower(http.StatusText(resp.StatusCode))}
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return conn, nil
}

// ReadStream decodes JSON frames from conn and passes each to handle until
// ctx ends or the server closes the stream. A normal close returns nil.
func ReadStream[T any](ctx context.Context, conn *websocket.Conn, handle func(T) error) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteTimeout))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var frame T
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if err := handle(frame); err != nil {
			return err
		}
	}
}
