package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	"github.com/eason8811/international-shopping-sub001/pkg/clock"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// seedOrder 在假仓储里放一笔订单
func seedOrder(repo *fakeOrderRepo, orderNo string, userID uint64, status order.Status,
	payStatus order.PayStatus, createdAt time.Time) *order.Order {

	item, _ := order.NewOrderItem(1, 101, 0, "蓝牙耳机", "", "",
		money.Money{Amount: 4999, Currency: "USD"}, 2)
	o := &order.Order{
		OrderNo:        orderNo,
		UserID:         userID,
		Currency:       "USD",
		Status:         status,
		PayStatus:      payStatus,
		Items:          []order.OrderItem{item},
		DiscountAmount: usd(0),
		ShippingAmount: usd(0),
		TaxAmount:      usd(0),
		IdempotencyKey: "seed-" + orderNo,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	_ = o.RecalcAmounts()
	repo.byNo[orderNo] = o
	repo.byKey[idemKey{o.UserID, o.IdempotencyKey}] = o
	return o
}

func newCancelFixture() (*CancelOrderUseCase, *fakeOrderRepo, *fakePaymentRepo, *fakeLedger, *fakePublisher) {
	orderRepo := newFakeOrderRepo()
	paymentRepo := newFakePaymentRepo()
	ledger := &fakeLedger{}
	publisher := &fakePublisher{}
	uc := NewCancelOrderUseCase(orderRepo, paymentRepo, ledger,
		fakeTxManager{}, publisher, clock.Fixed{T: testNow})
	return uc, orderRepo, paymentRepo, ledger, publisher
}

func TestCancelByUser_Success(t *testing.T) {
	uc, orderRepo, paymentRepo, ledger, publisher := newCancelFixture()
	seedOrder(orderRepo, "ORD001", 42, order.StatusPendingPayment, order.PayStatusInit, testNow)

	err := uc.CancelByUser(context.Background(), 42, "ORD001")
	require.NoError(t, err)

	o := orderRepo.byNo["ORD001"]
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.Equal(t, order.PayStatusClosed, o.PayStatus)

	// RELEASE流水 + 支付单关闭 + 状态日志
	require.Len(t, ledger.calls, 1)
	assert.Equal(t, order.ChangeRelease, ledger.calls[0].change)
	assert.Equal(t, []string{"ORD001"}, paymentRepo.closedOpen)
	require.Len(t, orderRepo.statusLogs, 1)
	assert.Equal(t, order.StatusPendingPayment, orderRepo.statusLogs[0].FromStatus)
	assert.Equal(t, order.StatusCancelled, orderRepo.statusLogs[0].ToStatus)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "order.cancelled", publisher.events[0].routingKey)
}

func TestCancelByUser_NotOwner(t *testing.T) {
	uc, orderRepo, _, _, _ := newCancelFixture()
	seedOrder(orderRepo, "ORD001", 42, order.StatusCreated, order.PayStatusNone, testNow)

	err := uc.CancelByUser(context.Background(), 99, "ORD001")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCancel_AlreadyCancelledIsIdempotent(t *testing.T) {
	uc, orderRepo, _, ledger, _ := newCancelFixture()
	seedOrder(orderRepo, "ORD001", 42, order.StatusCancelled, order.PayStatusClosed, testNow)

	err := uc.CancelByUser(context.Background(), 42, "ORD001")
	require.NoError(t, err)
	// 没有重复的副作用
	assert.Empty(t, ledger.calls)
}

func TestCancel_PaidIsConflict(t *testing.T) {
	uc, orderRepo, _, ledger, _ := newCancelFixture()
	seedOrder(orderRepo, "ORD001", 42, order.StatusPaid, order.PayStatusSuccess, testNow)

	err := uc.CancelByUser(context.Background(), 42, "ORD001")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Empty(t, ledger.calls)
}

func TestCancelExpired_Sweep(t *testing.T) {
	uc, orderRepo, _, ledger, _ := newCancelFixture()
	old := testNow.Add(-2 * time.Hour)
	seedOrder(orderRepo, "OLD001", 1, order.StatusCreated, order.PayStatusNone, old)
	seedOrder(orderRepo, "OLD002", 2, order.StatusPendingPayment, order.PayStatusInit, old)
	// 刚创建的订单不在扫描范围
	seedOrder(orderRepo, "NEW001", 3, order.StatusCreated, order.PayStatusNone, testNow)
	// 已支付订单不会被候选查询捞出
	seedOrder(orderRepo, "PAID01", 4, order.StatusPaid, order.PayStatusSuccess, old)

	cancelled, err := uc.CancelExpired(context.Background(), 30*time.Minute, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, cancelled)
	assert.Len(t, ledger.calls, 2)

	assert.Equal(t, order.StatusCancelled, orderRepo.byNo["OLD001"].Status)
	assert.Equal(t, order.StatusCancelled, orderRepo.byNo["OLD002"].Status)
	assert.Equal(t, order.StatusCreated, orderRepo.byNo["NEW001"].Status)
	assert.Equal(t, order.StatusPaid, orderRepo.byNo["PAID01"].Status)
}

func TestRequestRefund(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	uc := NewRequestRefundUseCase(orderRepo, fakeTxManager{}, clock.Fixed{T: testNow})
	ctx := context.Background()

	t.Run("已支付订单可申请", func(t *testing.T) {
		seedOrder(orderRepo, "ORD100", 42, order.StatusPaid, order.PayStatusSuccess, testNow)
		err := uc.Execute(ctx, RequestRefundRequest{
			UserID: 42, OrderNo: "ORD100", ReasonCode: "QUALITY", ReasonText: "质量问题",
		})
		require.NoError(t, err)

		o := orderRepo.byNo["ORD100"]
		assert.Equal(t, order.StatusRefunding, o.Status)
		require.NotNil(t, o.RefundReason)
		assert.Equal(t, "QUALITY", o.RefundReason.Code)
		assert.Equal(t, "USER", o.RefundReason.Initiator)
	})

	t.Run("重复申请幂等", func(t *testing.T) {
		err := uc.Execute(ctx, RequestRefundRequest{
			UserID: 42, OrderNo: "ORD100", ReasonCode: "QUALITY",
		})
		assert.NoError(t, err)
	})

	t.Run("未支付订单冲突", func(t *testing.T) {
		seedOrder(orderRepo, "ORD101", 42, order.StatusCreated, order.PayStatusNone, testNow)
		err := uc.Execute(ctx, RequestRefundRequest{
			UserID: 42, OrderNo: "ORD101", ReasonCode: "CHANGE_MIND",
		})
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("缺原因代码", func(t *testing.T) {
		err := uc.Execute(ctx, RequestRefundRequest{UserID: 42, OrderNo: "ORD100"})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidParams))
	})
}

type fakeAddressGuard struct {
	marked map[string]bool
}

func (g *fakeAddressGuard) MarkAddressChanged(_ context.Context, orderNo string, _ time.Duration) (bool, error) {
	if g.marked == nil {
		g.marked = make(map[string]bool)
	}
	if g.marked[orderNo] {
		return false, nil
	}
	g.marked[orderNo] = true
	return true, nil
}

func (g *fakeAddressGuard) UnmarkAddressChanged(_ context.Context, orderNo string) error {
	delete(g.marked, orderNo)
	return nil
}

func TestChangeAddress(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	guard := &fakeAddressGuard{}
	uc := NewChangeAddressUseCase(orderRepo, guard, clock.Fixed{T: testNow})
	ctx := context.Background()
	addr := order.AddressSnapshot{Receiver: "李四", Detail: "YY路2号"}

	t.Run("首次改址成功", func(t *testing.T) {
		seedOrder(orderRepo, "ORD200", 42, order.StatusPaid, order.PayStatusSuccess, testNow)
		err := uc.Execute(ctx, ChangeAddressRequest{UserID: 42, OrderNo: "ORD200", Address: addr})
		require.NoError(t, err)

		o := orderRepo.byNo["ORD200"]
		assert.True(t, o.AddressChanged)
		assert.Equal(t, "李四", o.Address.Receiver)
	})

	t.Run("第二次改址被拒", func(t *testing.T) {
		err := uc.Execute(ctx, ChangeAddressRequest{UserID: 42, OrderNo: "ORD200", Address: addr})
		assert.ErrorIs(t, err, apperrors.ErrAddressChanged)
	})

	t.Run("Redis标记丢失时数据库兜底", func(t *testing.T) {
		delete(guard.marked, "ORD200")
		err := uc.Execute(ctx, ChangeAddressRequest{UserID: 42, OrderNo: "ORD200", Address: addr})
		assert.ErrorIs(t, err, apperrors.ErrAddressChanged)
	})

	t.Run("退款中的订单不能改址", func(t *testing.T) {
		seedOrder(orderRepo, "ORD201", 42, order.StatusRefunding, order.PayStatusSuccess, testNow)
		err := uc.Execute(ctx, ChangeAddressRequest{UserID: 42, OrderNo: "ORD201", Address: addr})
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("缺收件人", func(t *testing.T) {
		err := uc.Execute(ctx, ChangeAddressRequest{
			UserID: 42, OrderNo: "ORD200", Address: order.AddressSnapshot{Detail: "x"},
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidParams))
	})
}
