package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
)

func amountPtr(v int64) *int64 { return &v }

// 构造一个已支付订单: 2×4999 + 1×999 = 10997, 运费1200, 优惠500, 实付11697
func paidOrder(t *testing.T) *order.Order {
	t.Helper()
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	item1, err := order.NewOrderItem(1, 11, 0, "无线耳机", "", "", money.MustNew(4999, "USD"), 2)
	require.NoError(t, err)
	item2, err := order.NewOrderItem(2, 21, 0, "手机壳", "", "", money.MustNew(999, "USD"), 1)
	require.NoError(t, err)

	o, err := order.New("ORD1", "k1", 1001, "USD", []order.OrderItem{item1, item2},
		money.MustNew(500, "USD"), money.MustNew(1200, "USD"), money.Zero("USD"), nil, now)
	require.NoError(t, err)
	require.NoError(t, o.MarkPaid(now))
	return o
}

func TestComputeRefundAmountFull(t *testing.T) {
	o := paidOrder(t)

	total, shipping, items, err := ComputeRefundAmount(o, RefundRequest{Full: true})
	require.NoError(t, err)

	assert.Equal(t, o.PayAmount.Amount, total.Amount, "整单退款金额等于订单实付")
	assert.True(t, shipping.IsZero())
	require.Len(t, items, 2)
	assert.Equal(t, uint64(11), items[0].SkuID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, int64(9998), items[0].Amount.Amount)
}

func TestComputeRefundAmountPartial(t *testing.T) {
	o := paidOrder(t)

	t.Run("显式金额", func(t *testing.T) {
		total, shipping, items, err := ComputeRefundAmount(o, RefundRequest{
			Items:         []RefundItemRequest{{SkuID: 11, Quantity: 1, AmountMinor: amountPtr(4999)}},
			ShippingMinor: 600,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5599), total.Amount)
		assert.Equal(t, int64(600), shipping.Amount)
		require.Len(t, items, 1)
		assert.Equal(t, int64(4999), items[0].Amount.Amount)
	})

	t.Run("缺省金额按数量分摊HALF_UP", func(t *testing.T) {
		// 行小计9998, 退1/2 → 4999
		total, _, items, err := ComputeRefundAmount(o, RefundRequest{
			Items: []RefundItemRequest{{SkuID: 11, Quantity: 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4999), items[0].Amount.Amount)
		assert.Equal(t, int64(4999), total.Amount)
	})

	t.Run("多数量按比例分摊", func(t *testing.T) {
		now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
		item, err := order.NewOrderItem(3, 31, 0, "贴纸", "", "", money.MustNew(1000, "USD"), 3)
		require.NoError(t, err)
		o2, err := order.New("ORD2", "k2", 1, "USD", []order.OrderItem{item},
			money.Zero("USD"), money.Zero("USD"), money.Zero("USD"), nil, now)
		require.NoError(t, err)
		require.NoError(t, o2.MarkPaid(now))

		// 小计3000,退1件 → 1000;退2件 → 2000
		_, _, items, err := ComputeRefundAmount(o2, RefundRequest{
			Items: []RefundItemRequest{{SkuID: 31, Quantity: 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1000), items[0].Amount.Amount)

		_, _, items2, err := ComputeRefundAmount(o2, RefundRequest{
			Items: []RefundItemRequest{{SkuID: 31, Quantity: 2}},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2000), items2[0].Amount.Amount)
	})

	t.Run("金额超过行小计应失败", func(t *testing.T) {
		_, _, _, err := ComputeRefundAmount(o, RefundRequest{
			Items: []RefundItemRequest{{SkuID: 21, Quantity: 1, AmountMinor: amountPtr(2000)}},
		})
		assert.Error(t, err)
	})

	t.Run("数量超过下单数量应失败", func(t *testing.T) {
		_, _, _, err := ComputeRefundAmount(o, RefundRequest{
			Items: []RefundItemRequest{{SkuID: 11, Quantity: 3}},
		})
		assert.Error(t, err)
	})

	t.Run("明细SKU重复应失败", func(t *testing.T) {
		// 同一个SKU拆成两行叠加金额可以绕过行小计上限,必须整体拒绝
		_, _, _, err := ComputeRefundAmount(o, RefundRequest{
			Items: []RefundItemRequest{
				{SkuID: 11, Quantity: 1},
				{SkuID: 11, Quantity: 1},
			},
		})
		assert.Error(t, err)
	})

	t.Run("SKU不在订单中应失败", func(t *testing.T) {
		_, _, _, err := ComputeRefundAmount(o, RefundRequest{
			Items: []RefundItemRequest{{SkuID: 999, Quantity: 1}},
		})
		assert.Error(t, err)
	})

	t.Run("零金额应失败", func(t *testing.T) {
		_, _, _, err := ComputeRefundAmount(o, RefundRequest{
			Items: []RefundItemRequest{{SkuID: 21, Quantity: 1, AmountMinor: amountPtr(0)}},
		})
		assert.Error(t, err)
	})

	t.Run("超过实付金额应失败", func(t *testing.T) {
		_, _, _, err := ComputeRefundAmount(o, RefundRequest{
			Items: []RefundItemRequest{
				{SkuID: 11, Quantity: 2, AmountMinor: amountPtr(9998)},
				{SkuID: 21, Quantity: 1, AmountMinor: amountPtr(999)},
			},
			ShippingMinor: 1200, // 10997 - 500优惠后实付11697, 此处合计12197
		})
		assert.Error(t, err)
	})

	t.Run("空明细应失败", func(t *testing.T) {
		_, _, _, err := ComputeRefundAmount(o, RefundRequest{})
		assert.Error(t, err)
	})
}

func TestRestockPlan(t *testing.T) {
	o := paidOrder(t)

	t.Run("整单退款回补全部订单行", func(t *testing.T) {
		plan := RestockPlan(o, &PaymentRefund{Full: true})
		require.Len(t, plan, 2)
		assert.Equal(t, order.SkuQuantity{SkuID: 11, Quantity: 2}, plan[0])
		assert.Equal(t, order.SkuQuantity{SkuID: 21, Quantity: 1}, plan[1])
	})

	t.Run("部分退款按SKU聚合", func(t *testing.T) {
		r := &PaymentRefund{Items: []RefundItem{
			{SkuID: 11, Quantity: 1},
			{SkuID: 11, Quantity: 1},
			{SkuID: 21, Quantity: 1},
		}}
		plan := RestockPlan(o, r)
		require.Len(t, plan, 2)
		assert.Equal(t, order.SkuQuantity{SkuID: 11, Quantity: 2}, plan[0])
		assert.Equal(t, order.SkuQuantity{SkuID: 21, Quantity: 1}, plan[1])
	})
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, RefundSuccess, MapCaptureStatus("COMPLETED"))
	assert.Equal(t, RefundSuccess, MapCaptureStatus("SUCCESS"))
	assert.Equal(t, RefundPending, MapCaptureStatus("PENDING"))
	assert.Equal(t, RefundPending, MapCaptureStatus("WHO_KNOWS"))

	assert.Equal(t, RefundSuccess, MapPollStatus("COMPLETED"))
	assert.Equal(t, RefundPending, MapPollStatus("PENDING"))
	assert.Equal(t, RefundFail, MapPollStatus("CANCELLED"))
	assert.Equal(t, RefundFail, MapPollStatus(""))

	// v1退款查询接口返回小写状态(completed/pending),映射必须大小写无关
	assert.Equal(t, RefundSuccess, MapPollStatus("completed"))
	assert.Equal(t, RefundPending, MapPollStatus("pending"))
	assert.Equal(t, RefundFail, MapPollStatus("cancelled"))
	assert.Equal(t, RefundSuccess, MapCaptureStatus("completed"))
}
