package remote

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Server error codes the engine's recovery policies switch on. Values match
// the errorCode field of the order service's error envelope.
const (
	CodeProductNotFound       = "productNotFound"
	CodeSKUNotFound           = "skuNotFound"
	CodeNotForIndividualSale  = "productNotForIndividualSale"
	CodeCouponApply           = "couponApplyError"
	CodeGiftCardApply         = "giftCardApplyError"
	CodeGiftCardInsufficient  = "giftCardInsufficientBalance"
	CodeGiftCardInvalid       = "giftCardInvalid"
	CodeGiftCardProcessing    = "giftCardProcessingError"
	CodeUnlinkedAddon         = "addonProductNotLinked"
	CodeCurrencyNotFound      = "selectedCurrencyNotFound"
	CodeInvalidShopperInput   = "invalidShopperInput"
	CodeSessionExpired        = "sessionExpired"
	CodeAddonVolumePrice      = "addonVolumePriceError"
	CodeOrderNotFound         = "orderNotFound"
	CodePricingGeneralFailure = "pricingError"
)

// ErrorDetail is one entry of a multi-error response body, carrying the
// offending product when the server reports a per-line failure.
type ErrorDetail struct {
	Code      string `json:"errorCode"`
	Message   string `json:"message"`
	ProductID string `json:"moreInfo,omitempty"`
}

// ServerError is a failure reported by the order or catalog service with a
// server-supplied error code. Transport failures without a code are plain
// errors and recover via full reload.
type ServerError struct {
	Code    string
	Message string
	Status  int
	Details []ErrorDetail
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error %s (status %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

// AsServerError unwraps err into a ServerError if one is in the chain.
func AsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsGiftCardCode reports whether the code belongs to the gift card error
// family, which recovers through the gift-card channel.
func IsGiftCardCode(code string) bool {
	switch code {
	case CodeGiftCardApply, CodeGiftCardInsufficient, CodeGiftCardInvalid, CodeGiftCardProcessing:
		return true
	}
	return false
}

// IsMissingItemCode reports whether the code means a requested line no
// longer exists in the catalog.
func IsMissingItemCode(code string) bool {
	switch code {
	case CodeProductNotFound, CodeSKUNotFound, CodeNotForIndividualSale:
		return true
	}
	return false
}
