package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/plutov/paypal/v4"

	"github.com/eason8811/international-shopping-sub001/internal/domain/payment"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/config"
	"github.com/eason8811/international-shopping-sub001/pkg/circuitbreaker"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// Adapter PayPal支付网关适配器
// 设计说明：
// 1. 所有出网调用都包在熔断器里:渠道抖动时快速失败,
//    退款单留在INIT/PENDING等对账任务兜底,不阻塞请求线程
// 2. 退款发起带PayPal-Request-Id幂等头(ClientRefundNo),
//    同一退款单重复发起在渠道侧只生效一次
// 3. 渠道错误统一映射为gateway-failure错误码,调用方不感知渠道细节
type Adapter struct {
	client  *paypal.Client
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

// NewAdapter 创建PayPal适配器
func NewAdapter(cfg *config.Config) (*Adapter, error) {
	apiBase := paypal.APIBaseLive
	if cfg.PayPal.Sandbox {
		apiBase = paypal.APIBaseSandBox
	}

	client, err := paypal.NewClient(cfg.PayPal.ClientID, cfg.PayPal.Secret, apiBase)
	if err != nil {
		return nil, fmt.Errorf("创建PayPal客户端失败: %w", err)
	}

	cb := circuitbreaker.NewCircuitBreaker("paypal", circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		log.Printf("熔断器[%s]状态切换: %s -> %s", name, from, to)
	})

	timeout := cfg.PayPal.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Adapter{client: client, breaker: cb, timeout: timeout}, nil
}

// RefundCapture 对捕获发起退款
func (a *Adapter) RefundCapture(ctx context.Context, cmd payment.RefundCaptureCommand) (*payment.RefundCaptureResult, error) {
	req := paypal.RefundCaptureRequest{
		Amount: &paypal.Money{
			Currency: cmd.Amount.Currency,
			Value:    formatAmount(cmd.Amount.Amount),
		},
		NoteToPayer: cmd.Note,
	}
	requestPayload, _ := json.Marshal(req)

	var resp *paypal.RefundResponse
	err := a.execute(ctx, func(callCtx context.Context) error {
		var callErr error
		resp, callErr = a.client.RefundCaptureWithPaypalRequestId(callCtx, cmd.CaptureID, req, cmd.IdempotencyKey)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	responsePayload, _ := json.Marshal(resp)
	return &payment.RefundCaptureResult{
		RefundID:        resp.ID,
		Status:          resp.Status,
		RequestPayload:  string(requestPayload),
		ResponsePayload: string(responsePayload),
	}, nil
}

// GetOrder 查询渠道订单,从详情中提取捕获凭证
func (a *Adapter) GetOrder(ctx context.Context, externalOrderID string) (*payment.GetOrderResult, error) {
	var resp *paypal.Order
	err := a.execute(ctx, func(callCtx context.Context) error {
		var callErr error
		resp, callErr = a.client.GetOrder(callCtx, externalOrderID)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	result := &payment.GetOrderResult{Status: resp.Status}
	for _, pu := range resp.PurchaseUnits {
		if pu.Payments == nil {
			continue
		}
		for _, cap := range pu.Payments.Captures {
			if cap.Status == "COMPLETED" {
				result.CaptureID = cap.ID
				return result, nil
			}
			if result.CaptureID == "" {
				result.CaptureID = cap.ID
			}
		}
	}
	return result, nil
}

// GetRefund 查询渠道退款(对账轮询)
func (a *Adapter) GetRefund(ctx context.Context, externalRefundID string) (*payment.GetRefundResult, error) {
	var resp *paypal.Refund
	err := a.execute(ctx, func(callCtx context.Context) error {
		var callErr error
		resp, callErr = a.client.GetRefund(callCtx, externalRefundID)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	// v1退款接口返回的状态在State字段,且是小写(completed/pending),
	// 大小写归一交给领域层的状态映射
	responsePayload, _ := json.Marshal(resp)
	return &payment.GetRefundResult{
		RefundID:        resp.ID,
		Status:          resp.State,
		ResponsePayload: string(responsePayload),
	}, nil
}

// execute 带超时+熔断地执行一次渠道调用,并统一映射错误码
func (a *Adapter) execute(ctx context.Context, call func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err := a.breaker.Execute(func() error {
		return call(callCtx)
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, circuitbreaker.ErrOpenState) {
		return apperrors.WrapCode(err, apperrors.ErrCodeGatewayFailure, "支付渠道熔断中")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.WrapCode(err, apperrors.ErrCodeGatewayTimeout, "支付渠道请求超时")
	}
	return apperrors.WrapCode(err, apperrors.ErrCodeGatewayFailure, "支付渠道调用失败")
}

// formatAmount 最小货币单位 → 渠道要求的小数字符串
func formatAmount(minor int64) string {
	return fmt.Sprintf("%.2f", float64(minor)/100)
}

var _ payment.Gateway = (*Adapter)(nil)
