// Package remote defines the persistence adapter the cart engine speaks to
// the authoritative order and catalog services through, together with the
// wire types and error codes the engine reads. The contract is
// request/response with an error-code field on failure; HTTP is one
// implementation, not an assumption.
package remote

import (
	"context"
)

// Params are query parameters for a Load request.
type Params map[string]string

// Adapter is the async request/response primitive over the remote services.
// Endpoints are service-relative paths; id is appended when non-empty. The
// returned payload is the raw response body; failures with a server error
// code surface as *ServerError.
type Adapter interface {
	Load(ctx context.Context, endpoint, id string, params Params) ([]byte, error)
	Create(ctx context.Context, endpoint, id string, body any) ([]byte, error)
	Update(ctx context.Context, endpoint, id string, body any) ([]byte, error)
	Remove(ctx context.Context, endpoint, id string, body any) ([]byte, error)
}

// Endpoints of the order and catalog services the engine uses.
const (
	EndpointOrders          = "orders"
	EndpointCurrentOrder    = "orders/current"
	EndpointPriceCart       = "cart/price"
	EndpointShippingMethods = "shippingmethods"
	EndpointProducts        = "products"
	EndpointStockStatus     = "stockstatus"
)
