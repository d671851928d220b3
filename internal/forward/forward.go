// Package forward implements the per-datagram forwarding handler: decode
// one inbound request, forward its first question upstream, synthesize a
// response, and send it back to the client.
package forward

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/arwynfr/dnsfwd/internal/buffer"
	"github.com/arwynfr/dnsfwd/internal/header"
	"github.com/arwynfr/dnsfwd/internal/packet"
	"github.com/arwynfr/dnsfwd/internal/record"
	"github.com/arwynfr/dnsfwd/internal/upstream"
)

// Replier sends an already-encoded datagram back to a client address.
// net.UDPConn satisfies this via WriteTo.
type Replier interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
}

// Handler forwards inbound datagrams to a single upstream resolver.
type Handler struct {
	Upstream *upstream.Client
	Logger   *slog.Logger
}

// New returns a Handler that forwards to up, logging through logger.
func New(up *upstream.Client, logger *slog.Logger) *Handler {
	return &Handler{Upstream: up, Logger: logger}
}

// Handle decodes the request in reqBuf, forwards its first question
// (if any) to the upstream resolver, and sends the synthesized response
// to from via reply. corrID tags every log line this call emits so the
// lines belonging to one datagram can be told apart from others being
// processed concurrently.
//
// Handle never panics onto the caller. Any unrecoverable failure while
// decoding the request is logged and no response is sent; the caller's
// goroutine simply returns, leaving the client to time out.
func (h *Handler) Handle(reqBuf *buffer.PacketBuffer, from net.Addr, reply Replier, corrID uuid.UUID) {
	log := h.Logger.With(slog.String("correlation_id", corrID.String()))

	req, err := packet.FromBuffer(reqBuf)
	if err != nil {
		log.Error("discarding request: failed to decode", slog.Any("error", err))
		return
	}

	resp := packet.New()
	resp.Header.ID = req.Header.ID
	resp.Header.SetQRFlag(true)
	resp.Header.SetRD(true)
	resp.Header.SetRA(true)

	switch {
	case len(req.Questions) == 0:
		log.Info("request has no questions", slog.Uint64("request_id", uint64(req.Header.ID)))
		resp.Header.SetRCODE(header.FormatError)

	default:
		q := req.Questions[0]
		log.Info("forwarding question",
			slog.String("name", q.Name),
			slog.String("qtype", q.Type.String()))

		if len(req.Questions) > 1 {
			log.Debug("ignoring extra questions beyond the first",
				slog.Int("extra_questions", len(req.Questions)-1))
		}

		upstreamResp, err := h.Upstream.Lookup(q.Name, q.Type)
		if err != nil {
			log.Warn("upstream lookup failed", slog.Any("error", err))
			resp.Header.SetRCODE(header.ServerFailure)
			break
		}

		resp.Header.SetRCODE(upstreamResp.Header.GetRCODE())
		resp.Questions = append(resp.Questions, q)
		resp.Answers = dropUnknown(log, "answer", upstreamResp.Answers)
		resp.Authorities = dropUnknown(log, "authority", upstreamResp.Authorities)
		resp.Additionals = dropUnknown(log, "additional", upstreamResp.Additionals)
	}

	respBuf := buffer.New()
	if err := resp.Write(respBuf); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
		return
	}

	if _, err := reply.WriteTo(respBuf.Bytes(), from); err != nil {
		log.Error("failed to send response", slog.Any("error", err))
	}
}

// dropUnknown copies records into the reply, logging each one at info
// level, while dropping UNKNOWN-kind records (each drop is logged at debug
// level and nothing about it reaches the client): this server has no
// wire representation for a record type it doesn't recognize, so those
// records cannot be forwarded (a documented, accepted lossy behavior).
func dropUnknown(log *slog.Logger, section string, records []*record.Record) []*record.Record {
	kept := make([]*record.Record, 0, len(records))
	for _, r := range records {
		if r.Kind == record.KindUnknown {
			log.Debug("dropping unknown record type from reply",
				slog.String("section", section),
				slog.String("domain", r.Domain),
				slog.String("type", fmt.Sprintf("%d", r.UnknownType.ToNum())))
			continue
		}
		log.Info("copying record into reply",
			slog.String("section", section),
			slog.String("domain", r.Domain))
		kept = append(kept, r)
	}
	return kept
}
