package service

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/set-night/assistant/internal/domain"
)

// Device is everything one chat needs: its own storage namespace, endpoint,
// theme and session. Each chat behaves like a separate installation.
type Device struct {
	ChatID   int64
	Gateway  *Gateway
	Endpoint *EndpointResolver
	Theme    *ThemeService

	lastSeen atomic.Int64
	inFlight atomic.Bool
}

// TryAcquire claims the device for one user request. It returns false while
// another request of the same chat is still running.
func (d *Device) TryAcquire() bool {
	return d.inFlight.CompareAndSwap(false, true)
}

func (d *Device) Release() {
	d.inFlight.Store(false)
}

func (d *Device) touch(now time.Time) {
	d.lastSeen.Store(now.UnixNano())
}

func (d *Device) LastSeen() time.Time {
	return time.Unix(0, d.lastSeen.Load())
}

// StoreFactory returns the storage namespace for a chat.
type StoreFactory func(chatID int64) KeyValueStore

type RegistryConfig struct {
	DefaultServerURL string
	ServerPort       int
	SystemTheme      domain.ThemePreference
	IdleTTL          time.Duration
}

// Registry caches live devices by chat id.
type Registry struct {
	stores StoreFactory
	client *http.Client
	cfg    RegistryConfig

	mu      sync.RWMutex
	devices map[int64]*Device
	group   singleflight.Group
}

func NewRegistry(stores StoreFactory, client *http.Client, cfg RegistryConfig) *Registry {
	return &Registry{
		stores:  stores,
		client:  client,
		cfg:     cfg,
		devices: make(map[int64]*Device),
	}
}

// Get returns the chat's device, creating it on first use. A new device
// loads its theme and restores any persisted session before it is returned.
func (r *Registry) Get(ctx context.Context, chatID int64) *Device {
	r.mu.RLock()
	d, ok := r.devices[chatID]
	r.mu.RUnlock()
	if ok {
		d.touch(time.Now())
		return d
	}

	v, _, _ := r.group.Do(strconv.FormatInt(chatID, 10), func() (any, error) {
		r.mu.RLock()
		existing, ok := r.devices[chatID]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		d := r.newDevice(ctx, chatID)
		r.mu.Lock()
		r.devices[chatID] = d
		r.mu.Unlock()
		slog.Debug("device created", "chat_id", chatID, "state", d.Gateway.State())
		return d, nil
	})
	d = v.(*Device)
	d.touch(time.Now())
	return d
}

func (r *Registry) newDevice(ctx context.Context, chatID int64) *Device {
	store := r.stores(chatID)
	endpoint := NewEndpointResolver(store, r.cfg.DefaultServerURL, r.cfg.ServerPort, r.client)
	d := &Device{
		ChatID:   chatID,
		Endpoint: endpoint,
		Gateway:  NewGateway(store, endpoint, r.client),
		Theme:    NewThemeService(store, r.cfg.SystemTheme),
	}
	d.Theme.Load(ctx)
	d.Gateway.RestoreSession(ctx)
	d.touch(time.Now())
	return d
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Sweep drops devices idle for longer than the configured TTL and returns
// how many were removed. Their persisted state stays in the store.
func (r *Registry) Sweep(now time.Time) int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, d := range r.devices {
		if now.Sub(d.LastSeen()) > r.cfg.IdleTTL {
			delete(r.devices, id)
			removed++
		}
	}
	return removed
}
