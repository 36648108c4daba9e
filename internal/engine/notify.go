package engine

import (
	"github.com/storeside/cartengine/internal/cart"
)

// NotificationKind names the outbound events the presentation layer consumes.
type NotificationKind string

const (
	NoteCartUpdated           NotificationKind = "cart-updated"
	NoteCartReady             NotificationKind = "cart-ready"
	NoteItemAdded             NotificationKind = "item-added"
	NoteItemRemoved           NotificationKind = "item-removed"
	NoteCouponApplyFailed     NotificationKind = "coupon-apply-failed"
	NoteCouponRemoveFailed    NotificationKind = "coupon-remove-failed"
	NoteGiftCardPricingFailed NotificationKind = "gift-card-pricing-failed"
	NotePriceComplete         NotificationKind = "price-complete"
	NoteOrderPricingFailed    NotificationKind = "order-pricing-failed"
)

// Notification is one outbound event with the payload relevant to its kind.
type Notification struct {
	Kind     NotificationKind
	Item     *cart.LineItem
	Names    []string
	Coupon   *cart.Coupon
	GiftCard *cart.GiftCard
	Message  string
	Err      error
}

// Notifier receives outbound notifications. Implementations must not call
// back into the engine from Notify; the engine holds its lock while
// publishing.
type Notifier interface {
	Notify(n Notification)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Notification) {}

// ChannelNotifier publishes notifications on a buffered channel, dropping
// when the consumer falls behind rather than blocking the pricing flow.
type ChannelNotifier struct {
	ch chan Notification
}

// NewChannelNotifier creates a ChannelNotifier with the given buffer size.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	return &ChannelNotifier{ch: make(chan Notification, buffer)}
}

// Notify implements Notifier.
func (n *ChannelNotifier) Notify(note Notification) {
	select {
	case n.ch <- note:
	default:
	}
}

// C returns the receive side of the notification channel.
func (n *ChannelNotifier) C() <-chan Notification {
	return n.ch
}
