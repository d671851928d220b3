// Package upstream implements a one-shot UDP DNS client: build a query,
// send it to a configured resolver, and decode whatever comes back.
package upstream

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/arwynfr/dnsfwd/internal/buffer"
	"github.com/arwynfr/dnsfwd/internal/packet"
	"github.com/arwynfr/dnsfwd/internal/question"
	"github.com/arwynfr/dnsfwd/internal/querytype"
)

// ErrUpstreamFailure wraps any dial, write, read, timeout, or decode
// failure encountered while querying the upstream resolver, including a
// response whose transaction id does not match the query that was sent.
var ErrUpstreamFailure = errors.New("upstream: query failed")

// Client queries a single configured upstream resolver.
type Client struct {
	// Addr is the upstream resolver's address, e.g. "8.8.8.8:53".
	Addr string

	// Timeout bounds how long Lookup waits for a response.
	Timeout time.Duration
}

// New returns a Client targeting addr with the given per-query timeout.
func New(addr string, timeout time.Duration) *Client {
	return &Client{Addr: addr, Timeout: timeout}
}

// Lookup forwards a single (qname, qtype) question to the upstream
// resolver over a short-lived UDP socket bound to an ephemeral local
// port, and returns the decoded response.
func (c *Client) Lookup(qname string, qtype querytype.QueryType) (*packet.Packet, error) {
	query := packet.New()
	if err := query.Header.SetRandomID(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}
	query.Header.SetRD(true)
	query.Questions = []*question.Question{{Name: qname, Type: qtype}}

	queryBuf := buffer.New()
	if err := query.Write(queryBuf); err != nil {
		return nil, fmt.Errorf("%w: encode query: %w", ErrUpstreamFailure, err)
	}

	conn, err := net.Dial("udp", c.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrUpstreamFailure, c.Addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.Timeout)); err != nil {
		return nil, fmt.Errorf("%w: set deadline: %w", ErrUpstreamFailure, err)
	}

	if _, err := conn.Write(queryBuf.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: send query: %w", ErrUpstreamFailure, err)
	}

	respRaw := make([]byte, buffer.Size)
	n, err := conn.Read(respRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: receive response: %w", ErrUpstreamFailure, err)
	}

	respBuf := buffer.NewFromBytes(respRaw[:n])
	resp, err := packet.FromBuffer(respBuf)
	if err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUpstreamFailure, err)
	}

	if resp.Header.ID != query.Header.ID {
		return nil, fmt.Errorf("%w: response id %d does not match query id %d",
			ErrUpstreamFailure, resp.Header.ID, query.Header.ID)
	}

	return resp, nil
}

