package cart

import (
	"time"

	"github.com/google/uuid"
)

// EventKind tags a cart mutation event.
type EventKind string

const (
	EventAdd             EventKind = "add"
	EventUpdate          EventKind = "update"
	EventDelete          EventKind = "delete"
	EventCouponAdd       EventKind = "coupon_add"
	EventCouponDelete    EventKind = "coupon_delete"
	EventCouponsAdd      EventKind = "coupons_add"
	EventGiftCardAdd     EventKind = "gift_card_add"
	EventGiftCardsAdd    EventKind = "gift_cards_add"
	EventGiftCardDelete  EventKind = "gift_card_delete"
	EventGiftCardReapply EventKind = "gift_card_reapply"
	EventReprice         EventKind = "reprice"

	// Presentation-layer kinds: pushed by callers that drive the
	// reconfigure, line-split, and payment-IIN flows rather than by the
	// engine's own operations.
	EventReconfigure EventKind = "reconfigure"
	EventSplit       EventKind = "split"
	EventIinsUpdated EventKind = "iins_updated"
)

// Event is one cart mutation. Kind decides which payload field is set; the
// constructors below are the only way payloads are assigned, so a consumer
// can switch on Kind without shape-sniffing.
//
// The event current when a pricing response arrives attributes success or
// failure: it selects the post-processing (item-added vs item-removed
// notifications, coupon rollback targets) and the recovery policy on error.
type Event struct {
	ID   uuid.UUID
	Kind EventKind
	At   time.Time

	Item      *LineItem
	Coupon    *Coupon
	Coupons   []*Coupon
	GiftCard  *GiftCard
	GiftCards []*GiftCard
}

// NewItemEvent creates an Add, Update, Delete, Reconfigure, or Split event.
func NewItemEvent(kind EventKind, item *LineItem) Event {
	return Event{ID: uuid.New(), Kind: kind, At: time.Now(), Item: item}
}

// NewCouponEvent creates a CouponAdd or CouponDelete event.
func NewCouponEvent(kind EventKind, c *Coupon) Event {
	return Event{ID: uuid.New(), Kind: kind, At: time.Now(), Coupon: c}
}

// NewCouponsEvent creates a CouponsAdd event carrying several coupons.
func NewCouponsEvent(coupons []*Coupon) Event {
	return Event{ID: uuid.New(), Kind: EventCouponsAdd, At: time.Now(), Coupons: coupons}
}

// NewGiftCardEvent creates a single-card gift card event.
func NewGiftCardEvent(kind EventKind, gc *GiftCard) Event {
	return Event{ID: uuid.New(), Kind: kind, At: time.Now(), GiftCard: gc}
}

// NewGiftCardsEvent creates a GiftCardsAdd or GiftCardReapply event.
func NewGiftCardsEvent(kind EventKind, cards []*GiftCard) Event {
	return Event{ID: uuid.New(), Kind: kind, At: time.Now(), GiftCards: cards}
}

// NewRepriceEvent creates a bare Reprice event.
func NewRepriceEvent() Event {
	return Event{ID: uuid.New(), Kind: EventReprice, At: time.Now()}
}

// EventLog tracks the single pending mutation event between a cart change and
// the pricing call it provokes, plus an append-only audit history. Only one
// logical event is ever current; pushing while one is pending replaces the
// pending slot but keeps both in the history.
//
// The log is an instance field of the cart session, never shared.
type EventLog struct {
	pending *Event
	history []Event
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Push records e as the pending event and appends it to the history.
func (l *EventLog) Push(e Event) {
	l.pending = &e
	l.history = append(l.history, e)
}

// Pending returns the current pending event without consuming it.
func (l *EventLog) Pending() (Event, bool) {
	if l.pending == nil {
		return Event{}, false
	}
	return *l.pending, true
}

// Consume returns the pending event and clears the slot. Each event is
// consumed by exactly one reconciliation cycle.
func (l *EventLog) Consume() (Event, bool) {
	if l.pending == nil {
		return Event{}, false
	}
	e := *l.pending
	l.pending = nil
	return e, true
}

// History returns the audit trail of every pushed event, oldest first.
func (l *EventLog) History() []Event {
	return l.history
}
