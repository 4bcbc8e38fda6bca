package cart

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/metrics"
	"github.com/angelmondragon/packfinderz-storefront/pkg/snapshot"
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// RegistryParams wires the collaborators shared by every device store.
type RegistryParams struct {
	Catalog         Catalog
	Remote          RemoteCart
	Snapshots       snapshot.Backend
	Logger          *logger.Logger
	Metrics         *metrics.CartMetrics
	MirrorQueueSize int
	// Now defaults to time.Now.
	Now func() time.Time
}

type registryEntry struct {
	store    *Store
	lastUsed time.Time
}

// Registry keeps one Store per device and retires stores left idle.
type Registry struct {
	params RegistryParams
	logg   *logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	stores map[string]*registryEntry
}

func NewRegistry(p RegistryParams) (*Registry, error) {
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if p.Remote == nil {
		return nil, fmt.Errorf("remote cart required")
	}
	if p.Snapshots == nil {
		return nil, fmt.Errorf("snapshot backend required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		params: p,
		logg:   logg,
		now:    now,
		stores: make(map[string]*registryEntry),
	}, nil
}

// ValidDeviceID reports whether id is usable as a snapshot scope.
func ValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}

// Get returns the store of the device, creating it on first use.
func (r *Registry) Get(deviceID string) (*Store, error) {
	deviceID = strings.TrimSpace(deviceID)
	if !ValidDeviceID(deviceID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid device id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.stores[deviceID]; ok {
		entry.lastUsed = r.now()
		return entry.store, nil
	}

	store, err := NewStore(StoreParams{
		Catalog:         r.params.Catalog,
		Remote:          r.params.Remote,
		Snapshots:       snapshot.Scoped(r.params.Snapshots, deviceID),
		Logger:          r.logg,
		Metrics:         r.params.Metrics,
		MirrorQueueSize: r.params.MirrorQueueSize,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart store")
	}
	r.stores[deviceID] = &registryEntry{store: store, lastUsed: r.now()}
	return store, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Evict closes the stores unused for longer than idle and returns how many were retired.
// Their snapshots stay in the backend and are picked up again on the next request.
func (r *Registry) Evict(ctx context.Context, idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var retired []*Store
	for deviceID, entry := range r.stores {
		if entry.lastUsed.Before(cutoff) {
			retired = append(retired, entry.store)
			delete(r.stores, deviceID)
		}
	}
	r.mu.Unlock()

	for _, store := range retired {
		store.Close()
	}
	if len(retired) > 0 {
		r.logg.Info(r.logg.WithField(ctx, "evicted", len(retired)), "cart.registry.evicted")
	}
	return len(retired)
}

// Sweep runs Evict every interval until ctx is done.
func (r *Registry) Sweep(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict(ctx, idle)
		}
	}
}

// Drain waits for the pending remote writes of every live store, bounded by ctx. Stores
// flush concurrently so one stuck device does not hold up the others. The returned error
// lists each device that could not be flushed.
func (r *Registry) Drain(ctx context.Context) error {
	r.mu.Lock()
	stores := make(map[string]*Store, len(r.stores))
	for deviceID, entry := range r.stores {
		stores[deviceID] = entry.store
	}
	r.mu.Unlock()

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	for deviceID, store := range stores {
		deviceID, store := deviceID, store
		g.Go(func() error {
			if err := store.Flush(ctx); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("flush device %s: %w", deviceID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Close drains and stops every store.
func (r *Registry) Close() {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, entry := range stores {
		entry.store.Close()
	}
}

// Shutdown runs Close but gives up once ctx is done. Stores still draining keep their
// workers running in the background.
func (r *Registry) Shutdown(ctx context.Context) error {
	closed := make(chan struct{})
	go func() {
		r.Close()
		close(closed)
	}()
	select {
	case <-closed:
		return nil
	case <-ctx.Done():
		select {
		case <-closed:
			return nil
		default:
			return ctx.Err()
		}
	}
}
