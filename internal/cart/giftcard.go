package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// GiftCard is one gift card applied to the cart, keyed by Number.
type GiftCard struct {
	Number       string
	MaskedNumber string
	Pin          string
	Amount       decimal.Decimal
	Balance      decimal.Decimal

	// PinCleared is set when the card's pin must be re-entered before the
	// card can participate in pricing again.
	PinCleared bool
}

// PaymentRecord is a gift-card payment group entry from a pricing response.
type PaymentRecord struct {
	MaskedNumber  string
	Amount        decimal.Decimal
	Balance       decimal.Decimal
	PaymentMethod string
}

// GiftCardPaymentMethod is the payment method value marking a gift card
// payment group on the wire.
const GiftCardPaymentMethod = "physicalGiftCard"

// SyncGiftCards mutates the local gift cards in place from the payment
// records of a pricing response: applied amount, remaining balance, and
// masked number are overwritten for matched cards. A card absent from the
// response is marked PinCleared rather than removed, since its pin has to be
// re-entered before the card can be reapplied.
func SyncGiftCards(cards []*GiftCard, records []PaymentRecord) {
	for _, card := range cards {
		rec := matchPaymentRecord(card, records)
		if rec == nil {
			card.PinCleared = true
			card.Pin = ""
			continue
		}
		card.Amount = rec.Amount
		card.Balance = rec.Balance
		card.MaskedNumber = rec.MaskedNumber
		card.PinCleared = false
	}
}

// matchPaymentRecord pairs a card with a payment record by the unmasked
// suffix of the card number; the server only ever returns masked numbers.
func matchPaymentRecord(card *GiftCard, records []PaymentRecord) *PaymentRecord {
	for i := range records {
		rec := &records[i]
		if rec.PaymentMethod != GiftCardPaymentMethod {
			continue
		}
		if maskedSuffixMatches(card.Number, rec.MaskedNumber) {
			return rec
		}
	}
	return nil
}

func maskedSuffixMatches(number, masked string) bool {
	suffix := strings.TrimLeft(masked, "*xX")
	return suffix != "" && strings.HasSuffix(number, suffix)
}

// FindGiftCard returns the card with the given number, or nil.
func FindGiftCard(cards []*GiftCard, number string) *GiftCard {
	for _, card := range cards {
		if card.Number == number {
			return card
		}
	}
	return nil
}

// RemoveGiftCard drops the card with the given number, reporting whether it
// was present.
func RemoveGiftCard(cards []*GiftCard, number string) ([]*GiftCard, bool) {
	for i, card := range cards {
		if card.Number == number {
			return append(cards[:i], cards[i+1:]...), true
		}
	}
	return cards, false
}
