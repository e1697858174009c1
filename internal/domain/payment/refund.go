package payment

import (
	"strings"
	"time"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// RefundStatus 退款单状态
type RefundStatus string

const (
	RefundInit    RefundStatus = "INIT"    // 已落库,尚未(成功)发起渠道退款
	RefundPending RefundStatus = "PENDING" // 渠道处理中,等待轮询对账
	RefundSuccess RefundStatus = "SUCCESS" // 渠道退款成功
	RefundFail    RefundStatus = "FAIL"    // 渠道退款失败(终态,重试需开新退款单)
	RefundClosed  RefundStatus = "CLOSED"  // 人工关闭
)

// IsFinal 是否终态
func (s RefundStatus) IsFinal() bool {
	return s == RefundFail || s == RefundClosed
}

// RefundItem 退款明细项
type RefundItem struct {
	ID       uint64
	RefundID uint64
	SkuID    uint64
	Quantity int
	Amount   money.Money // 该行退款金额
}

// PaymentRefund 退款单
// 教学要点:
// 1. 先落INIT退款单再调渠道:进程在网关调用后崩溃时,
//    留在库里的INIT记录会被对账任务接管,不会资金悬空
// 2. ClientRefundNo作为渠道侧幂等键("ppref-"+RefundNo),
//    同一退款单重复发起在渠道侧也只会生效一次
type PaymentRefund struct {
	ID               uint64
	RefundNo         string // 业务退款单号
	OrderNo          string
	PaymentOrderID   uint64
	ExternalRefundID string // 渠道退款ID(轮询凭证)
	ClientRefundNo   string // 渠道幂等键
	Amount           money.Money
	ItemsAmount      money.Money
	ShippingAmount   money.Money
	Status           RefundStatus
	Full             bool // 是否整单退款
	ReasonCode       string
	ReasonText       string
	Initiator        string // ADMIN | SYSTEM
	RequestPayload   string
	ResponsePayload  string
	Items            []RefundItem
	LastPolledAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ClientRefundNoFor 渠道幂等键规则
func ClientRefundNoFor(refundNo string) string {
	return "ppref-" + refundNo
}

// =========================================
// 退款金额计算(纯函数,不做I/O)
// =========================================

// RefundItemRequest 部分退款的行请求
// AmountMinor为nil时按 小计 × 数量/下单数量 分摊(HALF_UP)
type RefundItemRequest struct {
	SkuID       uint64
	Quantity    int
	AmountMinor *int64
}

// RefundRequest 退款请求
type RefundRequest struct {
	Full          bool
	Items         []RefundItemRequest
	ShippingMinor int64 // 部分退款时随单退的运费,整单退款忽略
	ReasonCode    string
	ReasonText    string
	Initiator     string
}

// ComputeRefundAmount 计算退款金额与标准化明细
//
// 整单退款: 金额 = 订单实付payAmount,明细为全部订单行
// 部分退款: 金额 = Σ行金额 + 运费
//   - 行数量必须 >0 且 ≤ 下单数量
//   - 行金额(显式给出时)必须 ≤ 行小计
//   - 行金额缺省时按数量比例分摊小计,除法HALF_UP
// 结果必须 >0 且 ≤ payAmount
func ComputeRefundAmount(o *order.Order, req RefundRequest) (money.Money, money.Money, []RefundItem, error) {
	zero := money.Zero(o.Currency)

	if req.Full {
		items := make([]RefundItem, len(o.Items))
		for i, it := range o.Items {
			items[i] = RefundItem{SkuID: it.SkuID, Quantity: it.Quantity, Amount: it.Subtotal}
		}
		return o.PayAmount, zero, items, nil
	}

	if len(req.Items) == 0 {
		return zero, zero, nil, apperrors.New(apperrors.ErrCodeInvalidParams, "部分退款必须指定退款明细")
	}

	bySku := make(map[uint64]*order.OrderItem, len(o.Items))
	for i := range o.Items {
		bySku[o.Items[i].SkuID] = &o.Items[i]
	}

	itemsTotal := zero
	items := make([]RefundItem, 0, len(req.Items))
	seen := make(map[uint64]bool, len(req.Items))
	for _, r := range req.Items {
		// 同一个SKU重复出现按非法请求处理, 避免退款金额叠加超出行小计
		if seen[r.SkuID] {
			return zero, zero, nil, apperrors.Newf(apperrors.ErrCodeInvalidParams,
				"退款明细SKU重复: %d", r.SkuID)
		}
		seen[r.SkuID] = true

		line, ok := bySku[r.SkuID]
		if !ok {
			return zero, zero, nil, apperrors.Newf(apperrors.ErrCodeInvalidParams,
				"退款SKU不在订单中: %d", r.SkuID)
		}
		if r.Quantity <= 0 || r.Quantity > line.Quantity {
			return zero, zero, nil, apperrors.Newf(apperrors.ErrCodeInvalidParams,
				"SKU %d退款数量非法: %d (下单数量 %d)", r.SkuID, r.Quantity, line.Quantity)
		}

		var lineAmount money.Money
		if r.AmountMinor != nil {
			var err error
			lineAmount, err = money.New(*r.AmountMinor, o.Currency)
			if err != nil {
				return zero, zero, nil, err
			}
			if cmp, err := lineAmount.Cmp(line.Subtotal); err != nil || cmp > 0 {
				if err != nil {
					return zero, zero, nil, err
				}
				return zero, zero, nil, apperrors.Newf(apperrors.ErrCodeInvalidParams,
					"SKU %d退款金额超过行小计: %s > %s", r.SkuID, lineAmount, line.Subtotal)
			}
		} else {
			var err error
			lineAmount, err = line.Subtotal.PartHalfUp(int64(r.Quantity), int64(line.Quantity))
			if err != nil {
				return zero, zero, nil, err
			}
		}

		var err error
		itemsTotal, err = itemsTotal.Add(lineAmount)
		if err != nil {
			return zero, zero, nil, err
		}
		items = append(items, RefundItem{SkuID: r.SkuID, Quantity: r.Quantity, Amount: lineAmount})
	}

	shipping, err := money.New(req.ShippingMinor, o.Currency)
	if err != nil {
		return zero, zero, nil, err
	}
	total, err := itemsTotal.Add(shipping)
	if err != nil {
		return zero, zero, nil, err
	}

	if total.IsZero() {
		return zero, zero, nil, apperrors.New(apperrors.ErrCodeInvalidParams, "退款金额必须大于0")
	}
	if cmp, err := total.Cmp(o.PayAmount); err != nil {
		return zero, zero, nil, err
	} else if cmp > 0 {
		return zero, zero, nil, apperrors.Newf(apperrors.ErrCodeInvalidParams,
			"退款金额超过订单实付: %s > %s", total, o.PayAmount)
	}

	return total, shipping, items, nil
}

// RestockPlan 计算退款成功后的回补清单
// 整单退款回补全部订单行;部分退款按退款明细聚合到SKU维度
func RestockPlan(o *order.Order, r *PaymentRefund) []order.SkuQuantity {
	agg := make(map[uint64]int)
	var ids []uint64

	add := func(skuID uint64, qty int) {
		if _, ok := agg[skuID]; !ok {
			ids = append(ids, skuID)
		}
		agg[skuID] += qty
	}

	if r.Full {
		for _, it := range o.Items {
			add(it.SkuID, it.Quantity)
		}
	} else {
		for _, it := range r.Items {
			add(it.SkuID, it.Quantity)
		}
	}

	plan := make([]order.SkuQuantity, 0, len(ids))
	for _, id := range ids {
		plan = append(plan, order.SkuQuantity{SkuID: id, Quantity: agg[id]})
	}
	return plan
}

// =========================================
// 渠道状态映射
// =========================================

// MapCaptureStatus 发起退款的返回状态映射
// 只认成功,其余一律PENDING交给对账任务,不轻率判FAIL
// 渠道不同版本接口大小写不一致(COMPLETED vs completed),先归一再比较
func MapCaptureStatus(gatewayStatus string) RefundStatus {
	switch strings.ToUpper(gatewayStatus) {
	case "COMPLETED", "SUCCESS":
		return RefundSuccess
	default:
		return RefundPending
	}
}

// MapPollStatus 对账轮询的状态映射
// 轮询拿到的是渠道终态视图,非成功非处理中即失败
func MapPollStatus(gatewayStatus string) RefundStatus {
	switch strings.ToUpper(gatewayStatus) {
	case "COMPLETED", "SUCCESS":
		return RefundSuccess
	case "PENDING":
		return RefundPending
	default:
		return RefundFail
	}
}
