package payment

import (
	"context"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
)

// RefundCaptureCommand 发起渠道退款的命令
type RefundCaptureCommand struct {
	IdempotencyKey string // 渠道幂等键(ClientRefundNo)
	CaptureID      string // 资金捕获凭证
	Amount         money.Money
	Note           string
}

// RefundCaptureResult 渠道退款返回
type RefundCaptureResult struct {
	RefundID        string // 渠道退款ID
	Status          string // 渠道原始状态(COMPLETED/PENDING/...)
	RequestPayload  string
	ResponsePayload string
}

// GetOrderResult 渠道订单查询返回
type GetOrderResult struct {
	Status    string
	CaptureID string // 从订单详情中提取的捕获凭证(可能为空)
}

// GetRefundResult 渠道退款查询返回
type GetRefundResult struct {
	RefundID        string
	Status          string
	ResponsePayload string
}

// Gateway 支付网关端口(由PayPal适配器实现)
// 所有调用都是出网请求,必须带context;网关异常统一映射为gateway-failure错误码
type Gateway interface {
	// RefundCapture 对捕获发起退款
	RefundCapture(ctx context.Context, cmd RefundCaptureCommand) (*RefundCaptureResult, error)

	// GetOrder 查询渠道订单(用于找回缺失的CaptureID)
	GetOrder(ctx context.Context, externalOrderID string) (*GetOrderResult, error)

	// GetRefund 查询渠道退款(对账轮询)
	GetRefund(ctx context.Context, externalRefundID string) (*GetRefundResult, error)
}
