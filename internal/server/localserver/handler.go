package localserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/time/rate"

	"github.com/yndnr/kvs-go/internal/core/domain"
	"github.com/yndnr/kvs-go/internal/core/service"
	"github.com/yndnr/kvs-go/internal/telemetry/logger"
	"github.com/yndnr/kvs-go/pkg/wire"
)

// channels are the three client FIFOs, owned by one session.
type channels struct {
	req   io.ReadCloser
	resp  io.WriteCloser
	notif io.WriteCloser
}

func (s *Server) openChannels(req wire.ConnectRequest) (*channels, error) {
	r, err := s.opener.OpenRead(req.RequestPath)
	if err != nil {
		return nil, err
	}
	resp, err := s.opener.OpenWrite(req.ResponsePath)
	if err != nil {
		r.Close()
		return nil, err
	}
	notif, err := s.opener.OpenWrite(req.NotifyPath)
	if err != nil {
		r.Close()
		resp.Close()
		return nil, err
	}
	return &channels{req: r, resp: resp, notif: notif}, nil
}

func (c *channels) close() {
	c.req.Close()
	c.resp.Close()
	c.notif.Close()
}

// serveClient completes the handshake and, for an accepted client,
// runs its session. sub is nil when the registry refused the client.
func (s *Server) serveClient(ctx context.Context, req wire.ConnectRequest, sub *service.Subscriber) {
	log := s.logger.With("request_pipe", req.RequestPath)

	ch, err := s.openChannels(req)
	if err != nil {
		log.Error("client channels unavailable", "error", domain.ErrChannel.WithCause(err))
		if sub != nil {
			s.registry.Remove(sub.ID())
		}
		return
	}

	if sub == nil {
		if err := wire.WriteStatus(ch.resp, false); err != nil {
			log.Warn("reject reply failed", "error", domain.ErrChannel.WithCause(err))
		}
		ch.close()
		return
	}

	if err := wire.WriteStatus(ch.resp, true); err != nil {
		log.Error("handshake failed", "error", domain.ErrChannel.WithCause(err))
		s.registry.Remove(sub.ID())
		ch.close()
		return
	}

	ctx = logger.WithSessionID(logger.WithLogger(ctx, log), sub.ID())
	h := &session{
		srv: s,
		sub: sub,
		ch:  ch,
		log: logger.L(ctx),
	}
	if s.cfg.RequestRate > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(s.cfg.RequestRate), max(1, s.cfg.RequestBurst))
	}
	h.log.Info("client connected")
	h.run(ctx)
	h.log.Info("client disconnected")
}

// session handles one connected client.
type session struct {
	srv     *Server
	sub     *service.Subscriber
	ch      *channels
	limiter *rate.Limiter
	log     logger.Logger
}

func (h *session) run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.pumpNotifications()
	}()
	go func() {
		defer wg.Done()
		// Unblocks a pending request read or notification write.
		<-h.sub.Done()
		h.ch.req.Close()
		h.ch.notif.Close()
	}()

	h.serveRequests(ctx)

	h.srv.registry.Remove(h.sub.ID())
	wg.Wait()
	h.ch.resp.Close()
}

func (h *session) pumpNotifications() {
	for {
		select {
		case n := <-h.sub.Notifications():
			if _, err := io.WriteString(h.ch.notif, n.String()); err != nil {
				select {
				case <-h.sub.Done():
				default:
					h.log.Warn("notification channel failed", "error", domain.ErrChannel.WithCause(err))
				}
				h.srv.registry.Remove(h.sub.ID())
				return
			}
		case <-h.sub.Done():
			return
		}
	}
}

func (h *session) serveRequests(ctx context.Context) {
	br := bufio.NewReader(h.ch.req)
	for {
		line, err := wire.ReadLine(br)
		if errors.Is(err, wire.ErrLineTooLong) {
			if !h.reply(wire.OpName(0), false) {
				return
			}
			continue
		}
		if line == "" && err != nil {
			return
		}

		if h.limiter != nil {
			if err := h.limiter.Wait(ctx); err != nil {
				return
			}
		}

		if h.handle(line) || err != nil {
			return
		}
	}
}

// handle answers one request and reports whether the session is over.
func (h *session) handle(line string) bool {
	req, err := wire.ParseRequest(line)
	if err != nil {
		h.log.Debug("malformed request", "error", domain.ErrMalformedRequest.WithCause(err))
		return !h.reply(wire.OpName(0), false)
	}

	op := wire.OpName(req.Op)
	switch req.Op {
	case wire.OpDisconnect:
		h.reply(op, true)
		h.srv.registry.Remove(h.sub.ID())
		return true

	case wire.OpSubscribe:
		return !h.reply(op, h.subscribe(req.Key))

	case wire.OpUnsubscribe:
		err := h.srv.registry.Unsubscribe(h.sub.ID(), req.Key)
		if err != nil {
			h.log.Debug("unsubscribe refused", "key", req.Key, "error", err)
		}
		return !h.reply(op, err == nil)

	default:
		return !h.reply(op, false)
	}
}

func (h *session) subscribe(key string) bool {
	if err := domain.ValidateToken(key); err != nil {
		h.log.Debug("subscribe refused", "error", err)
		return false
	}
	ok, err := h.srv.store.Exists(key)
	if err != nil || !ok {
		h.log.Debug("subscribe refused", "key", key, "exists", ok, "error", err)
		return false
	}
	if err := h.srv.registry.Subscribe(h.sub.ID(), key); err != nil {
		h.log.Debug("subscribe refused", "key", key, "error", err)
		return false
	}
	return true
}

// reply writes the status byte and reports whether the channel is
// still usable.
func (h *session) reply(op string, ok bool) bool {
	h.srv.metrics.RequestHandled(op, ok)
	if err := wire.WriteStatus(h.ch.resp, ok); err != nil {
		h.log.Warn("response channel failed", "error", domain.ErrChannel.WithCause(err))
		return false
	}
	return true
}
