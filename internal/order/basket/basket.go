package basket

import (
	"context"

	orderdomain "github.com/commercekit/paygate/internal/order/domain"
	"go.uber.org/zap"
)

// Logging is a stand-in basket collaborator. It records the intents the
// gateway issues; deployments wire an adapter onto the host's cart instead.
type Logging struct {
	log *zap.Logger
}

func NewLogging(log *zap.Logger) orderdomain.Basket {
	return &Logging{log: log.Named("order.basket")}
}

func (b *Logging) Refresh(ctx context.Context, sessionID string) error {
	b.log.Info("basket refresh requested", zap.String("session_id", sessionID))
	return nil
}

func (b *Logging) AddProduct(ctx context.Context, sessionID string, sku string, quantity int) error {
	b.log.Info("basket add requested",
		zap.String("session_id", sessionID),
		zap.String("sku", sku),
		zap.Int("quantity", quantity),
	)
	return nil
}
