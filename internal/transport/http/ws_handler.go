package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/presence-hub/internal/config"
	"github.com/vovakirdan/presence-hub/internal/core"
	"github.com/vovakirdan/presence-hub/internal/proto"
)

var errKicked = errors.New("session kicked")

// WSHandler upgrades HTTP connections and bridges them to a core.Channel.
type WSHandler struct {
	hub       *core.Hub
	rateLimit config.RateLimitConfig
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, rateLimit config.RateLimitConfig, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, rateLimit: rateLimit, log: logger}
}

// Handle serves GET /ws and GET /ws/:channel.
func (h *WSHandler) Handle(c *gin.Context) {
	name := c.Param("channel")
	if !validChannel(name) {
		c.Status(stdhttp.StatusNotFound)
		return
	}
	h.serve(c.Writer, c.Request, name, c.ClientIP())
}

func (h *WSHandler) serve(w stdhttp.ResponseWriter, r *stdhttp.Request, name, remoteAddr string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()

	channel := h.hub.Channel(name)
	session := core.NewSession(uuid.NewString(), remoteAddr)
	defer channel.Disconnect(session)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, channel, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	select {
	case <-session.Kicked():
		return
	default:
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "internal error"
			h.log.Warn().Err(err).Str("session", session.ID).Msg("ws connection closed with error")
		}
	}

	_ = conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, channel *core.Channel, session *core.Session) error {
	channel.Connect(ctx, session)

	limiter := newRateLimiter(h.rateLimit)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("session", session.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			if err := writeError(ctx, conn, &proto.Error{Code: proto.ErrCodeRateLimited, Msg: "slow down"}); err != nil {
				return err
			}
			continue
		}

		in, protoErr := inboundToCore(inbound)
		if protoErr != nil {
			if err := writeError(ctx, conn, protoErr); err != nil {
				return err
			}
			continue
		}
		channel.Handle(ctx, session, in)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		select {
		case event := <-session.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Debug().Err(err).Str("session", session.ID).Msg("write ws event")
				return err
			}
		case <-session.Kicked():
			h.flush(ctx, conn, session)
			_ = conn.Close(websocket.StatusPolicyViolation, "banned")
			return errKicked
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// flush writes the events queued before a kick, such as the ban notice.
func (h *WSHandler) flush(ctx context.Context, conn *websocket.Conn, session *core.Session) {
	for {
		select {
		case event := <-session.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				return
			}
		default:
			return
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, protoErr *proto.Error) error {
	return wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: protoErr,
	})
}
