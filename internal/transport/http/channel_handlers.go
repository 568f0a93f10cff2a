package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/presence-hub/internal/core"
	"github.com/vovakirdan/presence-hub/internal/proto"
)

// ChannelHandlers provides read-only HTTP endpoints describing channel presence.
type ChannelHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewChannelHandlers creates a new channel handlers instance.
func NewChannelHandlers(hub *core.Hub, logger *zerolog.Logger) *ChannelHandlers {
	return &ChannelHandlers{
		hub: hub,
		log: logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChannelSummary represents a channel in list responses.
type ChannelSummary struct {
	Name   string `json:"name"`
	Online int    `json:"online"`
}

// ChannelResponse represents one channel with its online sessions.
type ChannelResponse struct {
	Name   string       `json:"name"`
	Topic  string       `json:"topic,omitempty"`
	Online []proto.Peer `json:"online"`
}

// ListChannels handles listing started channels.
// GET /api/channels
func (h *ChannelHandlers) ListChannels(c *gin.Context) {
	names := h.hub.ChannelNames()

	response := make([]ChannelSummary, 0, len(names))
	for _, name := range names {
		ch, ok := h.hub.Lookup(name)
		if !ok {
			continue
		}
		response = append(response, ChannelSummary{Name: name, Online: len(ch.Online())})
	}

	h.log.Debug().Int("channel_count", len(response)).Msg("channels listed successfully")
	c.JSON(http.StatusOK, response)
}

// GetChannel handles describing one started channel.
// GET /api/channels/:channel
func (h *ChannelHandlers) GetChannel(c *gin.Context) {
	name := c.Param("channel")
	ch, ok := h.hub.Lookup(name)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
		return
	}

	info, err := ch.Info(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Str("channel", name).Msg("failed to load channel info")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	peers := ch.Online()
	online := make([]proto.Peer, 0, len(peers))
	for _, p := range peers {
		online = append(online, proto.Peer{ID: p.ID, Nick: p.Nick})
	}

	c.JSON(http.StatusOK, ChannelResponse{
		Name:   name,
		Topic:  info["topic"],
		Online: online,
	})
}
