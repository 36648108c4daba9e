package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/storeside/cartengine/internal/cart"
	"github.com/storeside/cartengine/internal/remote"
)

// recoverLocked maps a failed submission onto its recovery policy. The
// pending event attributes the failure: it names the coupon to roll back,
// the gift card to revert, or the event to replay after re-authentication.
// Every path either reconciles against server truth or surfaces a
// notification; a mutation is never dropped silently.
func (e *Engine) recoverLocked(ctx context.Context, submitErr error) error {
	ev, _ := e.events.Pending()

	se, ok := remote.AsServerError(submitErr)
	if !ok {
		// Transport failure with no server code: reload from server truth,
		// totals zeroed pending recomputation.
		e.lg.Warn("pricing call failed without server code", zap.Error(submitErr))
		e.events.Consume()
		e.state.Totals = e.state.Totals.Zeroed()
		e.state.SecondaryTotals = nil
		e.notifier.Notify(Notification{Kind: NoteOrderPricingFailed, Err: submitErr})
		return e.reloadLocked(ctx)
	}

	e.lg.Info("pricing call rejected",
		zap.String("code", se.Code), zap.String("kind", string(ev.Kind)))

	switch {
	case remote.IsMissingItemCode(se.Code):
		e.events.Consume()
		names := e.removeReportedLinesLocked(se)
		e.notifier.Notify(Notification{Kind: NoteItemRemoved, Names: names, Err: se})
		return e.reloadLocked(ctx)

	case se.Code == remote.CodeCouponApply:
		e.events.Consume()
		if ev.Coupon != nil {
			e.state.Coupons, _ = cart.RemoveCoupon(e.state.Coupons, ev.Coupon.Code)
		}
		for _, c := range ev.Coupons {
			e.state.Coupons, _ = cart.RemoveCoupon(e.state.Coupons, c.Code)
		}
		e.notifier.Notify(Notification{
			Kind: NoteCouponApplyFailed, Coupon: ev.Coupon, Message: se.Message, Err: se,
		})
		// The rest of the cart still needs the price the failed call never
		// delivered.
		e.events.Push(cart.NewRepriceEvent())
		return e.markDirtyLocked(ctx)

	case remote.IsGiftCardCode(se.Code):
		e.events.Consume()
		e.revertGiftCardLocked(ev, se.Code)
		e.notifier.Notify(Notification{
			Kind: NoteGiftCardPricingFailed, GiftCard: ev.GiftCard, Message: se.Message, Err: se,
		})
		e.events.Push(cart.NewRepriceEvent())
		return e.markDirtyLocked(ctx)

	case se.Code == remote.CodeUnlinkedAddon:
		// Add-on linkage changed server-side; only a full reload can tell
		// which lines survived.
		e.events.Consume()
		return e.reloadLocked(ctx)

	case se.Code == remote.CodeCurrencyNotFound:
		e.events.Consume()
		if e.state.PriceListGroupID == e.defaultPLG {
			// Already on the default group; retrying would loop on the
			// same rejection.
			e.notifier.Notify(Notification{Kind: NoteOrderPricingFailed, Message: se.Message, Err: se})
			return se
		}
		e.lg.Info("selected currency gone, resetting price list group",
			zap.String("default", e.defaultPLG))
		e.state.PriceListGroupID = e.defaultPLG
		e.events.Push(cart.NewRepriceEvent())
		return e.markDirtyLocked(ctx)

	case se.Code == remote.CodeInvalidShopperInput:
		// Surface a per-product message; the item stays.
		e.events.Consume()
		for _, detail := range se.Details {
			e.notifier.Notify(Notification{
				Kind:    NoteOrderPricingFailed,
				Message: detail.Message,
				Item:    e.findByProductIDLocked(detail.ProductID),
				Err:     se,
			})
		}
		if len(se.Details) == 0 {
			e.notifier.Notify(Notification{Kind: NoteOrderPricingFailed, Message: se.Message, Err: se})
		}
		return nil

	case se.Code == remote.CodeSessionExpired:
		e.events.Consume()
		if e.session.OnCartOrCheckoutPage() {
			e.lg.Info("session expired on cart/checkout page, clearing user data")
			e.clearUserDataLocked()
			return nil
		}
		e.replay = &ev
		e.lg.Info("session expired, event stashed for replay", zap.String("kind", string(ev.Kind)))
		return nil

	case se.Code == remote.CodeAddonVolumePrice:
		// No automatic removal; the shopper decides.
		e.events.Consume()
		e.notifier.Notify(Notification{
			Kind:    NoteOrderPricingFailed,
			Message: "remove the item to continue: " + se.Message,
			Item:    ev.Item,
			Err:     se,
		})
		return nil

	default:
		e.events.Consume()
		e.notifier.Notify(Notification{Kind: NoteOrderPricingFailed, Err: se})
		return e.reloadLocked(ctx)
	}
}

// removeReportedLinesLocked drops the lines the server named in the error
// details and returns their display names, each once.
func (e *Engine) removeReportedLinesLocked(se *remote.ServerError) []string {
	report := &cart.ValidityReport{}
	for _, detail := range se.Details {
		if detail.ProductID == "" {
			continue
		}
		kept := e.state.Items[:0]
		for _, item := range e.state.Items {
			if item.ProductID == detail.ProductID {
				report.AddName(item.DisplayName)
				continue
			}
			kept = append(kept, item)
		}
		e.state.Items = kept
	}
	return report.InvalidNames
}

// revertGiftCardLocked reverts the gift card the failed event carried:
// invalid or insufficient cards are removed outright, processing failures
// keep the card but clear its pin for re-entry.
func (e *Engine) revertGiftCardLocked(ev cart.Event, code string) {
	cards := ev.GiftCards
	if ev.GiftCard != nil {
		cards = append(cards, ev.GiftCard)
	}
	for _, gc := range cards {
		switch code {
		case remote.CodeGiftCardInvalid, remote.CodeGiftCardInsufficient:
			e.state.GiftCards, _ = cart.RemoveGiftCard(e.state.GiftCards, gc.Number)
		default:
			if existing := cart.FindGiftCard(e.state.GiftCards, gc.Number); existing != nil {
				existing.PinCleared = true
				existing.Pin = ""
			}
		}
	}
}

// reloadLocked resynchronizes the whole cart from server truth, falling
// back to the local snapshot when the server itself is unreachable.
func (e *Engine) reloadLocked(ctx context.Context) error {
	resp, err := e.orders.CurrentOrder(ctx)
	if err != nil {
		e.lg.Warn("full reload from server failed, keeping snapshot state", zap.Error(err))
		if env, ok := e.loadSnapshotLocked(); ok {
			e.state.Items = env.Items
			e.state.Coupons = env.Coupons
			e.state.Totals = env.Totals.Zeroed()
		}
		return nil
	}
	e.state.Items = nil
	updateCartData(e.state, resp)
	e.persistSnapshotLocked()
	e.notifier.Notify(Notification{Kind: NoteCartUpdated})
	return nil
}

func (e *Engine) findByProductIDLocked(productID string) *cart.LineItem {
	if productID == "" {
		return nil
	}
	for _, item := range e.state.Items {
		if item.ProductID == productID {
			return item
		}
	}
	return nil
}

// clearUserDataLocked is ClearUserData for callers already holding the lock.
func (e *Engine) clearUserDataLocked() {
	combine := e.state.Combine
	e.state = cart.NewState(combine)
	e.events = cart.NewEventLog()
	e.replay = nil
	e.checkout = Checkout{}
	if e.store != nil {
		_ = e.store.Remove(e.snapshotKey)
	}
}
