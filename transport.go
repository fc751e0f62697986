package tvremote

import (
	"context"
	"net"
	"net/url"
	"strconv"
)

const channelPath = "/api/v2/channels/samsung.remote.control"

// transport carries frames to and from one device connection.
// The websocket implementation lives in channel.go.
type transport interface {
	// send writes one serialized frame. Fails with ErrSendFailure once
	// the connection is gone.
	send(data []byte) error

	// receive blocks until a frame arrives. It has no timeout; closing
	// the transport from another goroutine unblocks it with ErrClosed.
	receive() ([]byte, error)

	// close shuts down the connection. Safe to call more than once.
	close() error
}

// dialer opens a transport for an endpoint.
type dialer func(ctx context.Context, ep Endpoint) (transport, error)

// Endpoint describes where and how to connect.
type Endpoint struct {
	Host   string
	Port   int
	Secure bool
	Name   string
	Token  string
}

// URL renders the channel URL. The token is only sent on the encrypted endpoint.
func (e Endpoint) URL() string {
	scheme := "ws"
	if e.Secure {
		scheme = "wss"
	}
	q := url.Values{}
	q.Set("name", serializeString(e.Name))
	if e.Secure && e.Token != "" {
		q.Set("token", e.Token)
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     net.JoinHostPort(e.Host, strconv.Itoa(e.Port)),
		Path:     channelPath,
		RawQuery: q.Encode(),
	}
	return u.String()
}
