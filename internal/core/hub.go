package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/text/message/catalog"

	"github.com/vovakirdan/presence-hub/internal/auth"
	"github.com/vovakirdan/presence-hub/internal/store"
)

// Settings are the tunables the hub needs from configuration.
type Settings struct {
	NickLimit          int
	MessageLimit       int
	DefaultAccessLevel int
	MaxNickAttempts    int
}

// Hub owns the channel registry and the command table. It is constructed once
// at startup and passed to the transport.
type Hub struct {
	store    store.Store
	accounts *auth.Service
	settings Settings
	log      *zerolog.Logger

	commands map[string]*command
	validate *validator.Validate
	catalog  catalog.Catalog

	mu       sync.Mutex
	channels map[string]*Channel
}

// NewHub creates a new hub instance.
func NewHub(st store.Store, accounts *auth.Service, settings Settings, logger *zerolog.Logger) (*Hub, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account service is required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if settings.MaxNickAttempts <= 0 {
		settings.MaxNickAttempts = 1
	}

	cat, err := newNoticeCatalog()
	if err != nil {
		return nil, fmt.Errorf("build notice catalog: %w", err)
	}

	h := &Hub{
		store:    st,
		accounts: accounts,
		settings: settings,
		log:      logger,
		validate: validator.New(),
		catalog:  cat,
		channels: make(map[string]*Channel),
	}
	h.commands = h.buildCommands()
	return h, nil
}

// VerifyEnabled reports whether registration requires an emailed code.
func (h *Hub) VerifyEnabled() bool {
	return h.accounts.VerifyEnabled()
}

// Channel returns the channel for name, creating it on first use.
// Channels live for the lifetime of the hub.
func (h *Hub) Channel(name string) *Channel {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.channels[name]; ok {
		return ch
	}

	display := name
	if display == "" {
		display = "<frontpage>"
	}
	h.log.Info().Str("channel", display).Msg("starting channel")

	ch := newChannel(h, name)
	h.channels[name] = ch
	return ch
}

// Lookup returns a started channel without creating it.
func (h *Hub) Lookup(name string) (*Channel, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.channels[name]
	return ch, ok
}

// ChannelNames lists the started channels in name order.
func (h *Hub) ChannelNames() []string {
	h.mu.Lock()
	names := make([]string, 0, len(h.channels))
	for name := range h.channels {
		names = append(names, name)
	}
	h.mu.Unlock()

	sort.Strings(names)
	return names
}
