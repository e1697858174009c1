package payment

import (
	"context"
	"time"
)

// Repository 支付/退款仓储接口
// 与订单仓储一样:状态流转用CAS,零行命中交由用例重读判定
type Repository interface {
	// CreatePlaceholder 创建占位支付单(渠道NONE,状态NONE),返回持久化后的记录
	CreatePlaceholder(ctx context.Context, p *PaymentOrder) error

	// FindPaymentByID 按ID查支付单
	FindPaymentByID(ctx context.Context, id uint64) (*PaymentOrder, error)

	// FindSuccessPayment 查订单的成功支付单,不存在返回ErrPaymentNotFound
	FindSuccessPayment(ctx context.Context, orderNo string) (*PaymentOrder, error)

	// UpdateCaptureID 回填资金捕获凭证
	UpdateCaptureID(ctx context.Context, paymentID uint64, captureID string, now time.Time) error

	// CloseSuccessPaymentCAS 支付单SUCCESS→CLOSED(退款成功后),已CLOSED视为幂等命中
	CloseSuccessPaymentCAS(ctx context.Context, paymentID uint64, now time.Time) (bool, error)

	// CloseOpenPayments 关闭订单下所有NONE/INIT/PENDING支付单(取消订单时)
	CloseOpenPayments(ctx context.Context, orderNo string, now time.Time) error

	// CreateRefund 落库退款单(含明细)
	CreateRefund(ctx context.Context, r *PaymentRefund) error

	// FindRefundByNo 按退款单号查退款单(含明细)
	FindRefundByNo(ctx context.Context, refundNo string) (*PaymentRefund, error)

	// FindOpenRefund 查订单进行中的退款单(INIT/PENDING),没有返回(nil, nil)
	FindOpenRefund(ctx context.Context, orderNo string) (*PaymentRefund, error)

	// UpdateRefundResult 发起渠道退款后回填结果(外部ID、状态、报文)
	UpdateRefundResult(ctx context.Context, refundNo string, externalRefundID string,
		status RefundStatus, requestPayload, responsePayload string, now time.Time) error

	// UpdateRefundStatusCAS 对账更新退款状态
	// 条件: status IN (INIT, PENDING);同时落lastPolledAt
	UpdateRefundStatusCAS(ctx context.Context, refundNo string, to RefundStatus,
		polledAt time.Time) (bool, error)

	// ListRefundsToSync 取待对账的退款单(INIT/PENDING/SUCCESS,按updated_at升序)
	// SUCCESS也要取:本地已成功但后续落账动作可能没做完,对账会幂等重放
	ListRefundsToSync(ctx context.Context, limit int) ([]*PaymentRefund, error)
}
