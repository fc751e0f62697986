package tvremote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsTransport implements transport over a gorilla websocket connection.
type wsTransport struct {
	url  string
	conn *websocket.Conn
	mu   sync.Mutex // protects conn writes

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// dialWebsocket is the default dialer. Certificate validation is disabled on
// the encrypted endpoint because devices present self-signed certificates.
func dialWebsocket(ctx context.Context, ep Endpoint) (transport, error) {
	rawURL := ep.URL()
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if ep.Secure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	conn, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, &ConnectionError{URL: rawURL, Reason: err.Error()}
	}
	return newWSTransport(rawURL, conn), nil
}

func newWSTransport(rawURL string, conn *websocket.Conn) *wsTransport {
	return &wsTransport{
		url:  rawURL,
		conn: conn,
		done: make(chan struct{}),
	}
}

func (t *wsTransport) send(data []byte) error {
	select {
	case <-t.done:
		return fmt.Errorf("%w: %w", ErrSendFailure, ErrClosed)
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailure, err)
	}
	return nil
}

func (t *wsTransport) receive() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		select {
		case <-t.done:
			return nil, ErrClosed
		default:
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, fmt.Errorf("%w: %w", ErrClosed, err)
		}
		return nil, err
	}
	return data, nil
}

func (t *wsTransport) close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		_ = t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		t.mu.Unlock()

		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
