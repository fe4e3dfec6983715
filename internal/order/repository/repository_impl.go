package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/commercekit/paygate/internal/order/domain"
	"gorm.io/gorm"
)

// Repository is a gorm-backed reference implementation of the order port.
// Deployments embedding the plugin into an existing shop replace this with an
// adapter onto the host's order storage.
type Repository struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) orderdomain.Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id snowflake.ID) (*orderdomain.Order, error) {
	if id == 0 {
		return nil, orderdomain.ErrMissingOrderID
	}
	var order orderdomain.Order
	err := r.db.WithContext(ctx).
		Preload("Details").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderdomain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) UpdateTransactionID(ctx context.Context, id snowflake.ID, transactionID string, paidStatusID int) error {
	return r.db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Where("id = ? AND payment_status_id <> ?", id, paidStatusID).
		Update("transaction_id", transactionID).Error
}

func (r *Repository) SetPaymentStatus(ctx context.Context, id snowflake.ID, statusID int, message string) (*orderdomain.Order, error) {
	return r.setStatus(ctx, id, "payment_status_id", statusID)
}

func (r *Repository) SetOrderStatus(ctx context.Context, id snowflake.ID, statusID int, message string, sendEmail bool) (*orderdomain.Order, error) {
	// The reference implementation has no mailer; sendEmail is forwarded to
	// hosts that do.
	return r.setStatus(ctx, id, "order_status_id", statusID)
}

// setStatus applies a single-column status update and returns the refreshed
// snapshot. The update is one statement, so concurrent IPN deliveries cannot
// interleave a stale write for the same column.
func (r *Repository) setStatus(ctx context.Context, id snowflake.ID, column string, statusID int) (*orderdomain.Order, error) {
	res := r.db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Where("id = ?", id).
		Update(column, statusID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, orderdomain.ErrOrderNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *Repository) AppendComment(ctx context.Context, id snowflake.ID, message string) error {
	if message == "" {
		return nil
	}
	order, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Where("id = ?", id).
		Update("comment", order.Comment+"\n"+message).Error
}

func (r *Repository) MarkCleared(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Where("id = ? AND cleared_at IS NULL", id).
		Update("cleared_at", time.Now().UTC()).Error
}
