package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/commercekit/paygate/internal/ledger/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) (ledgerdomain.Service, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerdomain.TransactionRecord{}))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	return NewService(Params{DB: db, Log: zap.NewNop(), GenID: node}), node
}

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	svc, node := setupLedger(t)
	orderID := node.Generate()

	require.NoError(t, svc.Append(ctx, orderID, "tx-1", ledgerdomain.StatusComplete, nil, 0))
	require.NoError(t, svc.Append(ctx, orderID, "tx-1", ledgerdomain.StatusPartialRefunded, nil, 10))

	records, err := svc.List(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, orderID, r.OrderID)
		assert.False(t, r.IsSubscription)
	}
}

func TestAppendZeroesRefundAmountOnNonRefundRows(t *testing.T) {
	ctx := context.Background()
	svc, node := setupLedger(t)
	orderID := node.Generate()

	require.NoError(t, svc.Append(ctx, orderID, "tx-1", ledgerdomain.StatusComplete, nil, 99))

	total, err := svc.TotalRefunded(ctx, orderID)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAppendRejectsMissingFields(t *testing.T) {
	ctx := context.Background()
	svc, node := setupLedger(t)

	assert.ErrorIs(t, svc.Append(ctx, 0, "tx-1", ledgerdomain.StatusComplete, nil, 0), ledgerdomain.ErrInvalidTransaction)
	assert.ErrorIs(t, svc.Append(ctx, node.Generate(), " ", ledgerdomain.StatusComplete, nil, 0), ledgerdomain.ErrInvalidTransaction)
}

func TestMaxRefundableAfterPartialRefund(t *testing.T) {
	ctx := context.Background()
	svc, node := setupLedger(t)
	orderID := node.Generate()
	orderAmount := 49.99

	require.NoError(t, svc.Append(ctx, orderID, "tx-1", ledgerdomain.StatusComplete, nil, 0))
	require.NoError(t, svc.Append(ctx, orderID, "tx-1", ledgerdomain.StatusPartialRefunded, nil, 12.5))

	max, err := svc.MaxRefundable(ctx, orderID, orderAmount)
	require.NoError(t, err)
	assert.InDelta(t, 37.49, max, 0.0001)

	has, err := svc.HasCompleteTransaction(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestTotalPaidAssumesUniformPaymentAmount(t *testing.T) {
	ctx := context.Background()
	svc, node := setupLedger(t)
	orderID := node.Generate()

	require.NoError(t, svc.Append(ctx, orderID, "tx-1", ledgerdomain.StatusComplete, nil, 0))
	require.NoError(t, svc.Append(ctx, orderID, "tx-2", ledgerdomain.StatusComplete, nil, 0))
	require.NoError(t, svc.Append(ctx, orderID, "tx-2", ledgerdomain.StatusRejected, nil, 0))

	paid, err := svc.TotalPaid(ctx, orderID, 20)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, paid, 0.0001)
}

func TestResolveOrderID(t *testing.T) {
	ctx := context.Background()
	svc, node := setupLedger(t)
	orderID := node.Generate()
	subID := "sub-9"

	require.NoError(t, svc.Append(ctx, orderID, "tx-1", ledgerdomain.StatusComplete, &subID, 0))

	byTx, err := svc.ResolveOrderID(ctx, ledgerdomain.LookupTransactionID, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, orderID, byTx)

	bySub, err := svc.ResolveOrderID(ctx, ledgerdomain.LookupSubscriptionID, "sub-9")
	require.NoError(t, err)
	assert.Equal(t, orderID, bySub)

	missing, err := svc.ResolveOrderID(ctx, ledgerdomain.LookupTransactionID, "tx-unknown")
	require.NoError(t, err)
	assert.Zero(t, missing)

	_, err = svc.ResolveOrderID(ctx, "status", "complete")
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidLookup)
}

func TestSetSubscriptionFlipsFlag(t *testing.T) {
	ctx := context.Background()
	svc, node := setupLedger(t)
	orderID := node.Generate()

	require.NoError(t, svc.Append(ctx, orderID, "tx-1", ledgerdomain.StatusComplete, nil, 0))
	require.NoError(t, svc.SetSubscription(ctx, "tx-1", "sub-3", true))

	records, err := svc.List(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsSubscription)
	require.NotNil(t, records[0].SubscriptionID)
	assert.Equal(t, "sub-3", *records[0].SubscriptionID)

	require.NoError(t, svc.SetSubscription(ctx, "tx-1", "", false))
	records, err = svc.List(ctx, orderID)
	require.NoError(t, err)
	assert.False(t, records[0].IsSubscription)
}
