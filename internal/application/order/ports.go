package order

import (
	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
)

const orderService = "order-service"

type IDGenerator interface {
	NewID() string
}

// Deps are the collaborators shared by the order use cases. Products must be the
// authoritative store, never a read cache.
type Deps struct {
	Orders    domorder.Repository
	Products  catalog.Repository
	Users     identity.Repository
	Carts     cart.Store
	IDs       IDGenerator
	Publisher domoutbox.Publisher
	Tel       observability.Observability
}

func (d Deps) instrument() *application.Instrument {
	return application.NewInstrument(orderService, d.Tel)
}
