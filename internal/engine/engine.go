// Package engine drives the cart state machine: it observes mutations,
// tracks the dirty flag, issues exactly one network flow per dirty
// transition, and reconciles server responses back into the cart state.
//
// The engine is constructed once per browsing session and owns its cart
// state exclusively. All operations serialize on one internal lock, which
// renders the single-logical-thread model of the original design: there is
// no parallel mutation, and at most one order-mutating call is ever in
// flight.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/storeside/cartengine/internal/cart"
	"github.com/storeside/cartengine/internal/catalog"
	"github.com/storeside/cartengine/internal/remote"
	"github.com/storeside/cartengine/internal/snapshot"
)

// Sentinel errors returned by engine operations.
var (
	// ErrOrderLocked means the order state suspends cart mutations
	// (pending payment and pending payment template).
	ErrOrderLocked = errors.New("order state suspends cart mutations")
	// ErrUnknownCoupon means the coupon code failed the local prefilter and
	// was rejected without a server round trip.
	ErrUnknownCoupon = errors.New("unknown coupon code")
	// ErrItemNotFound means no cart line matches the given commerce item id.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrGiftCardNotFound means no gift card matches the given number.
	ErrGiftCardNotFound = errors.New("gift card not found")
)

// OrderAPI is the slice of the order service the engine consumes.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req *remote.OrderRequest) (*remote.OrderResponse, error)
	UpdateOrder(ctx context.Context, orderID string, req *remote.OrderRequest) (*remote.OrderResponse, error)
	PriceCart(ctx context.Context, req *remote.OrderRequest) (*remote.OrderResponse, error)
	CurrentOrder(ctx context.Context) (*remote.OrderResponse, error)
	ShippingMethods(ctx context.Context, req *remote.OrderRequest) (*remote.ShippingMethodsResponse, error)
}

// CatalogAPI is the slice of the catalog/inventory service the engine
// consumes.
type CatalogAPI interface {
	ProductData(ctx context.Context, ids []string) (map[string]*catalog.Product, error)
	StockStatus(ctx context.Context, skuIDs []string) (map[string]string, error)
}

// Session exposes the shopper's authentication context.
type Session interface {
	Authenticated() bool
	ProfileID() string
	// OnCartOrCheckoutPage selects the session-expiry recovery: on the cart
	// or checkout page user data is cleared instead of replaying the event.
	OnCartOrCheckoutPage() bool
}

// Checkout tracks checkout progress, which selects the network flow on a
// dirty transition.
type Checkout struct {
	Started        bool
	ShippingMethod string
	Complete       bool
}

// Config assembles an Engine's dependencies.
type Config struct {
	Combine  cart.CombinePolicy
	Orders   OrderAPI
	Catalog  CatalogAPI
	Session  Session
	Snapshot snapshot.Store
	Notifier Notifier

	// Prefilter is optional; when nil every coupon code goes to the server.
	Prefilter *catalog.CouponPrefilter

	SnapshotKey string
	SnapshotTTL time.Duration

	// DefaultPriceListGroupID is the site default restored when the server
	// rejects the selected currency.
	DefaultPriceListGroupID string
	LineAttributes          []string

	Logger *zap.Logger
	Tracer trace.Tracer
	Now    func() time.Time
}

// Engine is the cart service object. Construct with New; zero value is not
// usable.
type Engine struct {
	mu       sync.Mutex
	state    *cart.State
	events   *cart.EventLog
	checkout Checkout

	orders    OrderAPI
	catalog   CatalogAPI
	session   Session
	store     snapshot.Store
	notifier  Notifier
	prefilter *catalog.CouponPrefilter

	snapshotKey string
	snapshotTTL time.Duration

	defaultPLG     string
	lineAttributes []string

	// replay holds the event to re-issue once an expired session is
	// re-established.
	replay *cart.Event

	lg     *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// New creates an Engine for one browsing session.
func New(cfg Config) *Engine {
	if cfg.Combine == "" {
		cfg.Combine = cart.CombineYes
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = snapshot.DefaultKey
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("cartengine")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		state:          cart.NewState(cfg.Combine),
		events:         cart.NewEventLog(),
		orders:         cfg.Orders,
		catalog:        cfg.Catalog,
		session:        cfg.Session,
		store:          cfg.Snapshot,
		notifier:       cfg.Notifier,
		prefilter:      cfg.Prefilter,
		snapshotKey:    cfg.SnapshotKey,
		snapshotTTL:    cfg.SnapshotTTL,
		defaultPLG:     cfg.DefaultPriceListGroupID,
		lineAttributes: cfg.LineAttributes,
		lg:             cfg.Logger,
		tracer:         cfg.Tracer,
		now:            cfg.Now,
	}
}

// AddItemRequest describes one add-to-cart action.
type AddItemRequest struct {
	ProductID    string
	CatalogRefID string
	Quantity     int
	DisplayName  string

	ConfiguratorID    string
	ChildItems        []*cart.LineItem
	HasSelectedAddons bool

	ExternalPrice         *decimal.Decimal
	ExternalPriceQuantity int

	DynamicProperties map[string]any
}

// AddItem adds a product to the cart and triggers the pricing flow. Under
// combine=yes an existing matching line absorbs the quantity; products with
// add-ons always create a new line.
func (e *Engine) AddItem(ctx context.Context, req AddItemRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.OrderState.SuppressesMutations() {
		return ErrOrderLocked
	}
	if req.Quantity <= 0 {
		return errors.Errorf("quantity must be positive, got %d", req.Quantity)
	}

	item := &cart.LineItem{
		ProductID:             req.ProductID,
		CatalogRefID:          req.CatalogRefID,
		ConfiguratorID:        req.ConfiguratorID,
		DisplayName:           req.DisplayName,
		Quantity:              req.Quantity,
		UpdatableQuantity:     req.Quantity,
		ChildItems:            req.ChildItems,
		ExternalPriceQuantity: req.ExternalPriceQuantity,
		DynamicProperties:     req.DynamicProperties,
	}
	if req.ExternalPrice != nil {
		item.ExternalPrice = *req.ExternalPrice
	}
	item.Kind = cart.ClassifyKind(req.ConfiguratorID, len(req.ChildItems), req.HasSelectedAddons)

	if target := e.findCombineTarget(item); target != nil {
		target.UpdatableQuantity += req.Quantity
		e.events.Push(cart.NewItemEvent(cart.EventAdd, target))
	} else {
		e.state.Items = append(e.state.Items, item)
		e.events.Push(cart.NewItemEvent(cart.EventAdd, item))
	}
	return e.markDirtyLocked(ctx)
}

// findCombineTarget returns the existing line a new add should merge into,
// or nil when the add must create a new line.
func (e *Engine) findCombineTarget(item *cart.LineItem) *cart.LineItem {
	if e.state.Combine == cart.CombineNo {
		return nil
	}
	return e.state.FindItem(item)
}

// UpdateItemQuantity proposes a new quantity for the line with the given
// commerce item id. Quantity zero deletes the line.
func (e *Engine) UpdateItemQuantity(ctx context.Context, commerceItemID string, quantity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.OrderState.SuppressesMutations() {
		return ErrOrderLocked
	}
	item := e.state.FindByCommerceItemID(commerceItemID)
	if item == nil {
		return ErrItemNotFound
	}
	if quantity <= 0 {
		e.state.RemoveItem(commerceItemID)
		e.events.Push(cart.NewItemEvent(cart.EventDelete, item))
		return e.markDirtyLocked(ctx)
	}
	item.UpdatableQuantity = quantity
	e.events.Push(cart.NewItemEvent(cart.EventUpdate, item))
	return e.markDirtyLocked(ctx)
}

// RemoveItem deletes a top-level line.
func (e *Engine) RemoveItem(ctx context.Context, commerceItemID string) error {
	return e.UpdateItemQuantity(ctx, commerceItemID, 0)
}

// AddChildItems attaches add-on children to an existing line.
func (e *Engine) AddChildItems(ctx context.Context, parentCommerceItemID string, children ...*cart.LineItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.OrderState.SuppressesMutations() {
		return ErrOrderLocked
	}
	parent := e.state.FindByCommerceItemID(parentCommerceItemID)
	if parent == nil {
		return ErrItemNotFound
	}
	cart.AddChildItems(parent, children...)
	e.events.Push(cart.NewItemEvent(cart.EventUpdate, parent))
	return e.markDirtyLocked(ctx)
}

// RemoveChildItem splices the child with the given commerce item id out of
// whichever line owns it. triggerPrice selects whether the removal provokes
// a pricing cycle: recursive invalidation passes remove children without
// per-child repricing.
func (e *Engine) RemoveChildItem(ctx context.Context, commerceItemID string, triggerPrice bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, item := range e.state.Items {
		if !cart.RemoveChildItem(item, commerceItemID) {
			continue
		}
		if !triggerPrice {
			return nil
		}
		e.events.Push(cart.NewItemEvent(cart.EventUpdate, item))
		return e.markDirtyLocked(ctx)
	}
	return ErrItemNotFound
}

// ApplyCoupon claims a coupon code. A code the local prefilter definitely
// does not know is rejected without a network call.
func (e *Engine) ApplyCoupon(ctx context.Context, code string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.prefilter != nil && !e.prefilter.MayContain(code) {
		e.notifier.Notify(Notification{
			Kind:    NoteCouponApplyFailed,
			Coupon:  &cart.Coupon{Code: code},
			Message: "coupon code is not valid",
		})
		return ErrUnknownCoupon
	}

	c := &cart.Coupon{Code: code, Status: cart.CouponClaimed}
	e.state.Coupons = append(e.state.Coupons, c)
	e.events.Push(cart.NewCouponEvent(cart.EventCouponAdd, c))
	return e.markDirtyLocked(ctx)
}

// ApplyCoupons claims several coupon codes in one pricing cycle.
func (e *Engine) ApplyCoupons(ctx context.Context, codes []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	added := make([]*cart.Coupon, 0, len(codes))
	for _, code := range codes {
		if e.prefilter != nil && !e.prefilter.MayContain(code) {
			e.notifier.Notify(Notification{
				Kind:    NoteCouponApplyFailed,
				Coupon:  &cart.Coupon{Code: code},
				Message: "coupon code is not valid",
			})
			continue
		}
		c := &cart.Coupon{Code: code, Status: cart.CouponClaimed}
		e.state.Coupons = append(e.state.Coupons, c)
		added = append(added, c)
	}
	if len(added) == 0 {
		return ErrUnknownCoupon
	}
	e.events.Push(cart.NewCouponsEvent(added))
	return e.markDirtyLocked(ctx)
}

// RemoveCoupon drops a claimed coupon and reprices.
func (e *Engine) RemoveCoupon(ctx context.Context, code string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := cart.FindCoupon(e.state.Coupons, code)
	if c == nil {
		return errors.Errorf("coupon %s not on cart", code)
	}
	e.state.Coupons, _ = cart.RemoveCoupon(e.state.Coupons, code)
	e.events.Push(cart.NewCouponEvent(cart.EventCouponDelete, c))
	return e.markDirtyLocked(ctx)
}

// ApplyGiftCard adds a gift card to the cart and reprices.
func (e *Engine) ApplyGiftCard(ctx context.Context, number, pin string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	gc := &cart.GiftCard{Number: number, Pin: pin}
	e.state.GiftCards = append(e.state.GiftCards, gc)
	e.events.Push(cart.NewGiftCardEvent(cart.EventGiftCardAdd, gc))
	return e.markDirtyLocked(ctx)
}

// RemoveGiftCard drops a gift card and reprices.
func (e *Engine) RemoveGiftCard(ctx context.Context, number string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	gc := cart.FindGiftCard(e.state.GiftCards, number)
	if gc == nil {
		return ErrGiftCardNotFound
	}
	e.state.GiftCards, _ = cart.RemoveGiftCard(e.state.GiftCards, number)
	e.events.Push(cart.NewGiftCardEvent(cart.EventGiftCardDelete, gc))
	return e.markDirtyLocked(ctx)
}

// ReapplyGiftCards re-submits pin-cleared gift cards whose pins were
// re-entered.
func (e *Engine) ReapplyGiftCards(ctx context.Context, cards []*cart.GiftCard) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, gc := range cards {
		existing := cart.FindGiftCard(e.state.GiftCards, gc.Number)
		if existing == nil {
			continue
		}
		existing.Pin = gc.Pin
		existing.PinCleared = false
	}
	e.events.Push(cart.NewGiftCardsEvent(cart.EventGiftCardReapply, cards))
	return e.markDirtyLocked(ctx)
}

// Reprice forces a pricing cycle without a structural cart change.
func (e *Engine) Reprice(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events.Push(cart.NewRepriceEvent())
	return e.markDirtyLocked(ctx)
}

// SetCheckout updates checkout progress, which changes the flow selected by
// the next dirty transition.
func (e *Engine) SetCheckout(c Checkout) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkout = c
}

// markDirtyLocked transitions dirty false to true exactly once per cycle and
// issues the selected network flow. A call while already dirty or while a
// submission is in flight is a no-op: the in-flight gate drops the trigger
// with a logged warning, it does not queue it.
func (e *Engine) markDirtyLocked(ctx context.Context) error {
	if e.state.SubmissionInProgress {
		e.lg.Warn("order submission in progress, pricing trigger dropped")
		return nil
	}
	if e.state.Dirty {
		return nil
	}
	e.state.Dirty = true
	return e.submitLocked(ctx)
}

// submitLocked runs one Dirty -> Submitting -> (Clean | Dirty) cycle.
func (e *Engine) submitLocked(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "cart.submit")
	defer span.End()

	e.state.SubmissionInProgress = true
	resp, err := e.dispatchLocked(ctx)
	e.state.SubmissionInProgress = false
	e.state.Dirty = false

	if err != nil {
		return e.recoverLocked(ctx, err)
	}

	updateCartData(e.state, resp)
	ev, consumed := e.events.Consume()
	e.persistSnapshotLocked()

	if consumed {
		e.publishEventOutcome(ev)
	}
	e.notifier.Notify(Notification{Kind: NotePriceComplete})
	e.notifier.Notify(Notification{Kind: NoteCartUpdated})
	return nil
}

// dispatchLocked selects and issues exactly one of the three network flows.
func (e *Engine) dispatchLocked(ctx context.Context) (*remote.OrderResponse, error) {
	req := e.buildRequestLocked()

	switch {
	case e.session.Authenticated() && !e.checkout.Started:
		if e.state.OrderID == "" {
			e.lg.Debug("dirty transition: create order")
			return e.orders.CreateOrder(ctx, req)
		}
		e.lg.Debug("dirty transition: update order", zap.String("order_id", e.state.OrderID))
		return e.orders.UpdateOrder(ctx, e.state.OrderID, req)

	case e.checkout.ShippingMethod != "" && !e.checkout.Complete:
		e.lg.Debug("dirty transition: reload shipping then price")
		methods, err := e.orders.ShippingMethods(ctx, req)
		if err != nil {
			return nil, err
		}
		e.applyShippingMethodsLocked(methods)
		return e.orders.PriceCart(ctx, req)

	default:
		e.lg.Debug("dirty transition: price only")
		return e.orders.PriceCart(ctx, req)
	}
}

// applyShippingMethodsLocked clears a selected shipping method that is no
// longer offered.
func (e *Engine) applyShippingMethodsLocked(resp *remote.ShippingMethodsResponse) {
	if e.checkout.ShippingMethod == "" {
		return
	}
	for _, m := range resp.Methods {
		if m.ID == e.checkout.ShippingMethod {
			return
		}
	}
	e.lg.Info("selected shipping method no longer available",
		zap.String("shipping_method", e.checkout.ShippingMethod))
	e.checkout.ShippingMethod = ""
}

func (e *Engine) buildRequestLocked() *remote.OrderRequest {
	req := &remote.OrderRequest{
		PriceListGroupID:  e.state.PriceListGroupID,
		ShippingMethod:    e.checkout.ShippingMethod,
		DynamicProperties: e.state.DynamicProperties,
	}
	if e.session.Authenticated() {
		req.ProfileID = e.session.ProfileID()
	}
	for _, item := range e.state.Items {
		if item.Invalid {
			continue
		}
		req.Items = append(req.Items, remote.FromLineItem(item))
	}
	for _, c := range e.state.Coupons {
		req.Coupons = append(req.Coupons, c.Code)
	}
	for _, gc := range e.state.GiftCards {
		if gc.PinCleared {
			continue
		}
		req.GiftCards = append(req.GiftCards, remote.WireGiftCard{Number: gc.Number, Pin: gc.Pin})
	}
	return req
}

// publishEventOutcome maps the consumed event onto its success notification.
func (e *Engine) publishEventOutcome(ev cart.Event) {
	switch ev.Kind {
	case cart.EventAdd:
		e.notifier.Notify(Notification{Kind: NoteItemAdded, Item: ev.Item})
	case cart.EventDelete:
		e.notifier.Notify(Notification{Kind: NoteItemRemoved, Item: ev.Item})
	}
}

// persistSnapshotLocked refreshes the local snapshot after a completed
// reconciliation.
func (e *Engine) persistSnapshotLocked() {
	if e.store == nil {
		return
	}
	env := snapshot.FromState(e.state, e.lineAttributes)
	env.GiftWithPurchaseOrderMarkers = e.state.GiftWithPurchaseOrderMarkers
	if err := e.store.Set(e.snapshotKey, env.Encode(), e.snapshotTTL); err != nil {
		e.lg.Warn("persist cart snapshot", zap.Error(err))
	}
}

// Hydrate initializes the cart at session start: from the server for an
// authenticated shopper, from the local snapshot otherwise. A snapshot that
// disagrees structurally with server truth is discarded in favour of the
// server.
func (e *Engine) Hydrate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, "cart.hydrate")
	defer span.End()

	if e.session.Authenticated() {
		resp, err := e.orders.CurrentOrder(ctx)
		if err != nil {
			if se, ok := remote.AsServerError(err); ok && se.Code == remote.CodeOrderNotFound {
				e.notifier.Notify(Notification{Kind: NoteCartReady})
				return nil
			}
			return errors.Wrap(err, "hydrate from server")
		}
		updateCartData(e.state, resp)

		if env, ok := e.loadSnapshotLocked(); ok {
			if _, equal := Diff(e.state.Items, env.Items); !equal {
				e.lg.Info("local snapshot stale, server truth wins")
			}
		}
		e.persistSnapshotLocked()
		e.notifier.Notify(Notification{Kind: NoteCartReady})
		return nil
	}

	env, ok := e.loadSnapshotLocked()
	if !ok {
		e.notifier.Notify(Notification{Kind: NoteCartReady})
		return nil
	}
	MergeItems(e.state, env.Items)
	e.state.Coupons = env.Coupons
	e.state.DynamicProperties = env.DynamicProperties
	e.state.PriceListGroupID = env.CartPriceListGroupID
	e.state.Totals = env.Totals
	e.state.GiftWithPurchaseOrderMarkers = env.GiftWithPurchaseOrderMarkers
	e.notifier.Notify(Notification{Kind: NoteCartReady})

	if e.state.Empty() {
		return nil
	}
	e.events.Push(cart.NewRepriceEvent())
	return e.markDirtyLocked(ctx)
}

func (e *Engine) loadSnapshotLocked() (*snapshot.Envelope, bool) {
	if e.store == nil {
		return nil, false
	}
	raw, ok := e.store.Get(e.snapshotKey)
	if !ok {
		return nil, false
	}
	env, err := snapshot.Decode(raw)
	if err != nil {
		e.lg.Warn("corrupt cart snapshot discarded", zap.Error(err))
		_ = e.store.Remove(e.snapshotKey)
		return nil, false
	}
	return env, true
}

// ResumeSession replays the event whose submission failed with a session
// expiry, now that the session is re-established.
func (e *Engine) ResumeSession(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.replay == nil {
		return nil
	}
	ev := *e.replay
	e.replay = nil
	e.lg.Info("replaying event after session restore", zap.String("kind", string(ev.Kind)))
	e.events.Push(ev)
	return e.markDirtyLocked(ctx)
}

// ClearUserData resets the cart to an empty anonymous state and drops the
// local snapshot.
func (e *Engine) ClearUserData() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearUserDataLocked()
}

// PersistSnapshot writes the current cart to the snapshot store immediately,
// so a later session hydrates from the latest state even if no submit cycle
// ran since the last mutation.
func (e *Engine) PersistSnapshot() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persistSnapshotLocked()
}

// RefreshStockStatus updates each line's stock state from the inventory
// service. Suspended while the order is in a checkout-locked state.
func (e *Engine) RefreshStockStatus(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.OrderState.SuppressesMutations() {
		return nil
	}
	var skuIDs []string
	for _, item := range e.state.Items {
		cart.Walk(item, func(node *cart.LineItem) bool {
			skuIDs = append(skuIDs, node.CatalogRefID)
			return true
		})
	}
	statuses, err := e.catalog.StockStatus(ctx, skuIDs)
	if err != nil {
		return errors.Wrap(err, "refresh stock status")
	}
	for _, item := range e.state.Items {
		cart.Walk(item, func(node *cart.LineItem) bool {
			if status, ok := statuses[node.CatalogRefID]; ok {
				node.StockState = cart.StockState(status)
			}
			return true
		})
	}
	return nil
}

// Items returns a deep copy of the top-level lines.
func (e *Engine) Items() []*cart.LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*cart.LineItem, 0, len(e.state.Items))
	for _, item := range e.state.Items {
		out = append(out, item.Clone())
	}
	return out
}

// Totals returns the current aggregate totals.
func (e *Engine) Totals() cart.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Totals
}

// Dirty reports whether a mutation is pending a completed pricing call.
func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Dirty
}

// OrderID returns the backing order's id, empty for an unpersisted cart.
func (e *Engine) OrderID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.OrderID
}

// EventHistory returns the audit log of every mutation event this session.
func (e *Engine) EventHistory() []cart.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events.History()
}
