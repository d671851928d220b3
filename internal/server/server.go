// Package server owns the listening UDP socket and the one-goroutine-
// per-datagram loop that hands each inbound packet to the forwarding
// handler.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/arwynfr/dnsfwd/internal/buffer"
	"github.com/arwynfr/dnsfwd/internal/config"
	"github.com/arwynfr/dnsfwd/internal/forward"
	"github.com/arwynfr/dnsfwd/internal/upstream"
)

// Server binds one UDP socket and forwards every datagram it receives to
// a forward.Handler, one goroutine per datagram.
type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	conn    *net.UDPConn
	handler *forward.Handler
}

// New binds the listening socket named by cfg.ListenAddr and constructs
// a Server ready to Run. Socket receive-buffer tuning is best-effort: a
// platform or permission failure is logged and does not prevent startup.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("server: resolve listen address %q: %w", cfg.ListenAddr, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen on %q: %w", cfg.ListenAddr, err)
	}

	if err := tuneRecvBuffer(conn, cfg.SocketRecvBufferBytes); err != nil {
		logger.Warn("failed to tune socket receive buffer, continuing with OS default",
			slog.Any("error", err))
	}

	up := upstream.New(cfg.UpstreamAddr, cfg.UpstreamTimeout)
	handler := forward.New(up, logger)

	return &Server{cfg: cfg, logger: logger, conn: conn, handler: handler}, nil
}

// tuneRecvBuffer raises the socket's SO_RCVBUF via golang.org/x/sys/unix,
// matching the buffer-sizing pattern used by high-throughput UDP DNS
// servers to absorb bursts of inbound datagrams without kernel drops.
func tuneRecvBuffer(conn *net.UDPConn, bytes int) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("obtain raw connection: %w", err)
	}

	var sockoptErr error
	err = raw.Control(func(fd uintptr) {
		sockoptErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bytes)
	})
	if err != nil {
		return fmt.Errorf("control raw connection: %w", err)
	}
	if sockoptErr != nil {
		return fmt.Errorf("setsockopt SO_RCVBUF: %w", sockoptErr)
	}
	return nil
}

// Run reads datagrams from the listening socket until ctx is cancelled,
// spawning one goroutine per datagram to decode, forward, and reply. Each
// datagram gets its own stack-local buffer and a fresh correlation id for
// logging; no state is shared between goroutines besides the socket
// itself, whose Go runtime implementation serializes concurrent sends
// safely.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	s.logger.Info("listening", slog.String("addr", s.cfg.ListenAddr), slog.String("upstream", s.cfg.UpstreamAddr))

	for {
		var raw [buffer.Size]byte
		n, from, err := s.conn.ReadFromUDP(raw[:])
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isClosedConnError(err) {
				return nil
			}
			s.logger.Error("read from socket failed", slog.Any("error", err))
			continue
		}

		reqBuf := buffer.NewFromBytes(raw[:n])
		corrID := uuid.New()
		go s.handler.Handle(reqBuf, from, s.conn, corrID)
	}
}

// Close releases the listening socket.
func (s *Server) Close() error {
	return s.conn.Close()
}

func isClosedConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.EBADF
}
