package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/packfinderz-storefront/pkg/auth"
	"github.com/angelmondragon/packfinderz-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/marketplace"
	"github.com/angelmondragon/packfinderz-storefront/pkg/metrics"
	"github.com/angelmondragon/packfinderz-storefront/pkg/snapshot"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StoreParams wires the collaborators of a Store.
type StoreParams struct {
	Catalog   Catalog
	Remote    RemoteCart
	Snapshots SnapshotStore
	Logger    *logger.Logger
	Metrics   *metrics.CartMetrics
	// MirrorQueueSize bounds the pending remote writes; defaults to 64.
	MirrorQueueSize int
	// NewLineID generates ids for local lines; defaults to uuid.NewString.
	NewLineID func() string
}

// Store reconciles the cart of one device between its local snapshot and, for
// customers, the marketplace cart. Mutations are applied locally first and mirrored
// remotely on a best-effort basis.
type Store struct {
	catalog   Catalog
	remote    RemoteCart
	snapshots SnapshotStore
	logg      *logger.Logger
	metrics   *metrics.CartMetrics
	mirror    *mirror
	newLineID func() string

	mu       sync.Mutex
	state    State
	identity string
	loaded   bool
}

// NewStore validates the params and starts the remote mirror worker.
func NewStore(p StoreParams) (*Store, error) {
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if p.Remote == nil {
		return nil, fmt.Errorf("remote cart required")
	}
	if p.Snapshots == nil {
		return nil, fmt.Errorf("snapshot store required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	newLineID := p.NewLineID
	if newLineID == nil {
		newLineID = uuid.NewString
	}
	return &Store{
		catalog:   p.Catalog,
		remote:    p.Remote,
		snapshots: p.Snapshots,
		logg:      logg,
		metrics:   p.Metrics,
		mirror:    newMirror(p.MirrorQueueSize, logg, p.Metrics),
		newLineID: newLineID,
		state:     State{Lines: []Line{}, Total: decimal.Zero, Mode: enums.CartModeLocal},
	}, nil
}

// State returns a copy of the published state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	out := s.state
	out.Lines = cloneLines(s.state.Lines)
	return out
}

// SyncAuth reloads the cart when the session identity differs from the one the store
// was last loaded with.
func (s *Store) SyncAuth(ctx context.Context, sess auth.Session) State {
	s.mu.Lock()
	current := s.loaded && s.identity == sess.Identity()
	s.mu.Unlock()
	if current {
		return s.State()
	}
	return s.Load(ctx, sess)
}

// Load refreshes the cart from the marketplace for customers and from the local
// snapshot for everybody else. It never fails: every error degrades to the local view.
func (s *Store) Load(ctx context.Context, sess auth.Session) State {
	s.mu.Lock()
	s.identity = sess.Identity()
	s.loaded = true
	s.mu.Unlock()

	if sess.IsCustomer() {
		if state, ok := s.loadRemote(ctx, sess); ok {
			return state
		}
	}
	return s.loadLocal(ctx)
}

func (s *Store) loadLocal(ctx context.Context) State {
	lines := s.readSnapshot(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Mode = enums.CartModeLocal
	s.publishLocked(lines)
	return s.snapshotLocked()
}

func (s *Store) readSnapshot(ctx context.Context) []Line {
	payload, err := s.snapshots.Read(ctx)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			s.logg.WarnErr(ctx, "cart.snapshot.read_failed", err)
		}
		return []Line{}
	}
	lines, err := decodeLines(payload)
	if err != nil {
		s.logg.WarnErr(ctx, "cart.snapshot.corrupt", err)
		s.metrics.IncSnapshotDiscarded()
		if delErr := s.snapshots.Delete(ctx); delErr != nil {
			s.logg.WarnErr(ctx, "cart.snapshot.delete_failed", delErr)
		}
		return []Line{}
	}
	return sanitizeLines(lines)
}

func (s *Store) loadRemote(ctx context.Context, sess auth.Session) (State, bool) {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()

	remoteLines, err := s.remote.GetCart(ctx, sess.Token)
	s.metrics.ObserveRemoteSync("load", err)
	if err != nil {
		s.logg.WarnErr(ctx, "cart.load.remote_failed", err)
		s.metrics.IncRemoteFallback()
		s.mu.Lock()
		s.state.Loading = false
		s.mu.Unlock()
		return State{}, false
	}

	lines := make([]Line, 0, len(remoteLines))
	for _, remoteLine := range remoteLines {
		line, ok := s.lineFromRemote(ctx, remoteLine)
		if ok {
			lines = append(lines, line)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	s.state.Mode = enums.CartModeRemote
	s.publishLocked(lines)
	s.persistLocked(ctx)
	return s.snapshotLocked(), true
}

// lineFromRemote rebuilds a local line from a marketplace cart line. Lines whose product
// cannot be resolved are dropped; a variant that cannot be resolved is kept unenriched.
func (s *Store) lineFromRemote(ctx context.Context, remoteLine marketplace.CartLine) (Line, bool) {
	ctx = s.logg.WithCartLineID(ctx, remoteLine.ID)
	if remoteLine.Quantity <= 0 {
		return Line{}, false
	}

	product := remoteLine.Product
	if product == nil || product.ID == "" {
		if remoteLine.ProductID == "" {
			s.logg.Warn(ctx, "cart.load.line_without_product")
			return Line{}, false
		}
		fetched, err := s.catalog.GetProduct(ctx, remoteLine.ProductID)
		if err != nil {
			s.logg.WarnErr(ctx, "cart.load.product_lookup_failed", err)
			return Line{}, false
		}
		product = fetched
	}

	line := Line{
		ID:       remoteLine.ID,
		Product:  productRefFrom(product),
		Quantity: remoteLine.Quantity,
	}
	if line.ID == "" {
		line.ID = s.newLineID()
	}
	if remoteLine.VariantID != "" {
		variant := s.resolveVariant(ctx, product.ID, remoteLine.VariantID)
		if variant == nil {
			variant = &VariantRef{ID: remoteLine.VariantID}
		}
		line.withVariant(variant)
	}
	return line, true
}

// resolveVariant returns nil when the variant list cannot be fetched or lacks the id.
func (s *Store) resolveVariant(ctx context.Context, productID, variantID string) *VariantRef {
	ctx = s.logg.WithField(ctx, "variant_id", variantID)
	variants, err := s.catalog.GetProductVariants(ctx, productID)
	if err != nil {
		s.logg.WarnErr(ctx, "cart.variant.lookup_failed", err)
		s.metrics.IncEnrichmentSkipped()
		return nil
	}
	for _, variant := range variants {
		if variant.ID == variantID {
			return variantRefFrom(variant)
		}
	}
	s.logg.Warn(ctx, "cart.variant.not_found")
	s.metrics.IncEnrichmentSkipped()
	return nil
}

// Add resolves the product, merges it into the cart and mirrors the addition for
// customers. A failed product lookup is the only error the caller sees.
func (s *Store) Add(ctx context.Context, sess auth.Session, productID string, quantity int, variantID string) (State, error) {
	productID = strings.TrimSpace(productID)
	variantID = strings.TrimSpace(variantID)
	if productID == "" {
		return s.State(), pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		return s.State(), pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if quantity > MaxLineQuantity {
		return s.State(), pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must not exceed %d", MaxLineQuantity))
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"product_id": productID, "variant_id": variantID})
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		s.logg.Error(ctx, "cart.add.product_lookup_failed", err)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return s.State(), pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return s.State(), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "product lookup failed")
	}
	if product.ID == "" {
		product.ID = productID
	}

	var variant *VariantRef
	if variantID != "" {
		variant = s.resolveVariant(ctx, product.ID, variantID)
	}
	resolvedVariantID := ""
	if variant != nil {
		resolvedVariantID = variant.ID
	}

	s.mu.Lock()
	lines := cloneLines(s.state.Lines)
	merged := false
	for i := range lines {
		if lines[i].matches(product.ID, resolvedVariantID) {
			if lines[i].Quantity > MaxLineQuantity-quantity {
				state := s.snapshotLocked()
				s.mu.Unlock()
				return state, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line quantity must not exceed %d", MaxLineQuantity))
			}
			lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		line := Line{ID: s.newLineID(), Product: productRefFrom(product), Quantity: quantity}
		line.withVariant(variant)
		lines = append(lines, line)
	}
	s.publishLocked(lines)
	s.persistLocked(ctx)
	// enqueued under the lock so remote writes keep the local order
	if sess.IsCustomer() {
		token := sess.Token
		s.mirror.enqueue(ctx, opAdd, func(ctx context.Context) error {
			return s.remote.AddToCart(ctx, token, product.ID, quantity, resolvedVariantID)
		})
	}
	state := s.snapshotLocked()
	s.mu.Unlock()
	return state, nil
}

// Remove drops the line and mirrors the removal for customers.
func (s *Store) Remove(ctx context.Context, sess auth.Session, lineID string) State {
	ctx = s.logg.WithCartLineID(ctx, lineID)

	s.mu.Lock()
	lines := make([]Line, 0, len(s.state.Lines))
	removed := false
	for _, line := range s.state.Lines {
		if line.ID == lineID {
			removed = true
			continue
		}
		lines = append(lines, line)
	}
	if !removed {
		state := s.snapshotLocked()
		s.mu.Unlock()
		return state
	}
	s.publishLocked(lines)
	s.persistLocked(ctx)
	if sess.IsCustomer() {
		token := sess.Token
		s.mirror.enqueue(ctx, opRemove, func(ctx context.Context) error {
			return s.remote.RemoveFromCart(ctx, token, lineID)
		})
	}
	state := s.snapshotLocked()
	s.mu.Unlock()
	return state
}

// SetQuantity replaces the quantity of a line. A non-positive quantity removes it.
// The marketplace is not told about quantity changes; ReconcileToRemote catches it up.
func (s *Store) SetQuantity(ctx context.Context, sess auth.Session, lineID string, quantity int) State {
	if quantity <= 0 {
		return s.Remove(ctx, sess, lineID)
	}
	if quantity > MaxLineQuantity {
		quantity = MaxLineQuantity
	}
	ctx = s.logg.WithCartLineID(ctx, lineID)

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := cloneLines(s.state.Lines)
	for i := range lines {
		if lines[i].ID == lineID {
			lines[i].Quantity = quantity
			s.publishLocked(lines)
			s.persistLocked(ctx)
			break
		}
	}
	return s.snapshotLocked()
}

// Clear empties the cart, deletes the snapshot and mirrors the clear for customers.
func (s *Store) Clear(ctx context.Context, sess auth.Session) State {
	s.mu.Lock()
	s.publishLocked([]Line{})
	if err := s.snapshots.Delete(ctx); err != nil {
		s.logg.WarnErr(ctx, "cart.snapshot.delete_failed", err)
	}
	if sess.IsCustomer() {
		token := sess.Token
		s.mirror.enqueue(ctx, opClear, func(ctx context.Context) error {
			return s.remote.ClearCart(ctx, token)
		})
	}
	state := s.snapshotLocked()
	s.mu.Unlock()
	return state
}

// ReconcileToRemote overwrites the marketplace cart with the local lines: the remote cart
// is cleared, then every line is added back in order. The first failure stops the replay
// and nothing already written is rolled back.
func (s *Store) ReconcileToRemote(ctx context.Context, sess auth.Session) bool {
	if !sess.IsCustomer() {
		s.logg.Warn(ctx, "cart.reconcile.not_customer")
		return false
	}
	if err := s.mirror.Flush(ctx); err != nil {
		s.logg.WarnErr(ctx, "cart.reconcile.flush_failed", err)
		return false
	}

	lines := s.State().Lines
	err := s.remote.ClearCart(ctx, sess.Token)
	s.metrics.ObserveRemoteSync(opClear, err)
	if err != nil {
		s.logg.Error(ctx, "cart.reconcile.clear_failed", err)
		return false
	}
	for _, line := range lines {
		lineCtx := s.logg.WithCartLineID(ctx, line.ID)
		err := s.remote.AddToCart(lineCtx, sess.Token, line.ProductID(), line.Quantity, line.VariantID())
		s.metrics.ObserveRemoteSync(opAdd, err)
		if err != nil {
			s.logg.Error(lineCtx, "cart.reconcile.add_failed", err)
			return false
		}
	}
	s.logg.Info(s.logg.WithField(ctx, "line_count", len(lines)), "cart.reconcile.completed")
	return true
}

// Flush waits for the pending remote writes.
func (s *Store) Flush(ctx context.Context) error {
	return s.mirror.Flush(ctx)
}

// Close drains the pending remote writes and stops the mirror worker.
func (s *Store) Close() {
	s.mirror.Close()
}

func (s *Store) publishLocked(lines []Line) {
	s.state.Lines = lines
	s.state.Total = Total(lines)
	s.state.ItemCount = itemCount(lines)
}

func (s *Store) persistLocked(ctx context.Context) {
	payload, err := encodeLines(s.state.Lines)
	if err != nil {
		s.logg.Error(ctx, "cart.snapshot.encode_failed", err)
		return
	}
	if err := s.snapshots.Write(ctx, payload); err != nil {
		s.logg.WarnErr(ctx, "cart.snapshot.write_failed", err)
	}
}
