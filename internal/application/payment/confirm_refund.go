package payment

import (
	"context"
	"log"
	"time"

	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	"github.com/eason8811/international-shopping-sub001/internal/domain/payment"
	"github.com/eason8811/international-shopping-sub001/pkg/clock"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
	"github.com/eason8811/international-shopping-sub001/pkg/ident"
	"github.com/eason8811/international-shopping-sub001/pkg/metrics"
)

// TxManager 事务端口
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher 事件发布端口
type EventPublisher interface {
	Publish(routingKey string, message interface{}) error
}

// ConfirmRefundUseCase 退款编排用例(管理端)
// 教学要点:跨进程资金操作的可靠性设计
// 1. 先落INIT退款单再调渠道:进程在渠道调用前后任何一点崩溃,
//    库里都有一条可被对账任务接管的记录,资金不会悬空
// 2. ClientRefundNo("ppref-"+RefundNo)作为渠道幂等键,
//    同一退款单重复发起在渠道侧只生效一次
// 3. 渠道返回非成功不轻率判FAIL,置PENDING交给对账轮询
type ConfirmRefundUseCase struct {
	orderRepo   order.Repository
	paymentRepo payment.Repository
	ledger      order.StockLedger
	gateway     payment.Gateway
	txManager   TxManager
	publisher   EventPublisher
	clock       clock.Clock
}

// NewConfirmRefundUseCase 创建退款编排用例
func NewConfirmRefundUseCase(
	orderRepo order.Repository,
	paymentRepo payment.Repository,
	ledger order.StockLedger,
	gateway payment.Gateway,
	txManager TxManager,
	publisher EventPublisher,
	clk clock.Clock,
) *ConfirmRefundUseCase {
	return &ConfirmRefundUseCase{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		ledger:      ledger,
		gateway:     gateway,
		txManager:   txManager,
		publisher:   publisher,
		clock:       clk,
	}
}

// RefundSucceededEvent 退款成功事件
type RefundSucceededEvent struct {
	OrderNo     string `json:"order_no"`
	RefundNo    string `json:"refund_no"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	SucceededAt string `json:"succeeded_at"`
}

// Execute 执行退款编排
//
// 流程:
// 1. 幂等守卫:订单已有INIT/PENDING退款单 → 原样返回
// 2. 订单必须处于REFUNDING
// 3. 计算退款金额(整单=实付;部分=Σ行金额+运费,缺省行金额按比例分摊)
// 4. 定位SUCCESS支付单,CaptureID缺失时通过渠道GetOrder找回
// 5. 先落INIT退款单,再调渠道RefundCapture
// 6. 渠道状态映射(COMPLETED/SUCCESS→SUCCESS,其余→PENDING)并回填
// 7. SUCCESS时落账(支付单关闭、订单REFUNDED、库存回补)
func (uc *ConfirmRefundUseCase) Execute(ctx context.Context, orderNo string, req payment.RefundRequest) (*payment.PaymentRefund, error) {
	// ========================================
	// 步骤1:幂等守卫
	// ========================================
	if open, err := uc.paymentRepo.FindOpenRefund(ctx, orderNo); err != nil {
		return nil, err
	} else if open != nil {
		return open, nil
	}

	o, err := uc.orderRepo.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusRefunding {
		return nil, apperrors.Newf(apperrors.ErrCodeStateConflict,
			"订单%s当前状态%s不允许退款,需先申请退款", orderNo, o.Status)
	}

	// ========================================
	// 步骤2:计算退款金额
	// ========================================
	total, shipping, items, err := payment.ComputeRefundAmount(o, req)
	if err != nil {
		return nil, err
	}

	// ========================================
	// 步骤3:定位SUCCESS支付单,必要时找回CaptureID
	// ========================================
	pay, err := uc.paymentRepo.FindSuccessPayment(ctx, orderNo)
	if err != nil {
		return nil, apperrors.WrapCode(err, apperrors.ErrCodePaymentNotFound,
			"订单没有成功的支付单,无法退款")
	}
	if pay.CaptureID == "" {
		if err := uc.recoverCaptureID(ctx, pay); err != nil {
			return nil, err
		}
	}

	// ========================================
	// 步骤4:先落INIT退款单(再碰渠道)
	// ========================================
	now := uc.clock.Now()
	itemsAmount, err := total.Sub(shipping)
	if err != nil {
		return nil, err
	}

	refundNo := ident.New()
	refund := &payment.PaymentRefund{
		RefundNo:       refundNo,
		OrderNo:        orderNo,
		PaymentOrderID: pay.ID,
		ClientRefundNo: payment.ClientRefundNoFor(refundNo),
		Amount:         total,
		ItemsAmount:    itemsAmount,
		ShippingAmount: shipping,
		Status:         payment.RefundInit,
		Full:           req.Full,
		ReasonCode:     req.ReasonCode,
		ReasonText:     req.ReasonText,
		Initiator:      req.Initiator,
		Items:          items,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.paymentRepo.CreateRefund(ctx, refund); err != nil {
		return nil, err
	}

	// ========================================
	// 步骤5:调渠道发起退款
	// ========================================
	result, err := uc.gateway.RefundCapture(ctx, payment.RefundCaptureCommand{
		IdempotencyKey: refund.ClientRefundNo,
		CaptureID:      pay.CaptureID,
		Amount:         total,
		Note:           req.ReasonText,
	})
	if err != nil {
		// INIT记录留在库里,对账任务会接管
		metrics.RefundsConfirmedTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	// ========================================
	// 步骤6:状态映射并回填
	// ========================================
	status := payment.MapCaptureStatus(result.Status)
	now = uc.clock.Now()
	if err := uc.paymentRepo.UpdateRefundResult(ctx, refundNo, result.RefundID,
		status, result.RequestPayload, result.ResponsePayload, now); err != nil {
		return nil, err
	}
	refund.ExternalRefundID = result.RefundID
	refund.Status = status
	refund.RequestPayload = result.RequestPayload
	refund.ResponsePayload = result.ResponsePayload
	refund.UpdatedAt = now

	// ========================================
	// 步骤7:成功则落账
	// ========================================
	if status == payment.RefundSuccess {
		if err := uc.ApplySuccessEffects(ctx, refund); err != nil {
			return nil, err
		}
		metrics.RefundsConfirmedTotal.WithLabelValues("success").Inc()
	} else {
		metrics.RefundsConfirmedTotal.WithLabelValues("pending").Inc()
	}

	return refund, nil
}

// recoverCaptureID 通过渠道订单详情找回缺失的捕获凭证
func (uc *ConfirmRefundUseCase) recoverCaptureID(ctx context.Context, pay *payment.PaymentOrder) error {
	if pay.ExternalOrderID == "" {
		return apperrors.ErrCaptureMissing
	}
	result, err := uc.gateway.GetOrder(ctx, pay.ExternalOrderID)
	if err != nil {
		return err
	}
	if result.CaptureID == "" {
		return apperrors.ErrCaptureMissing
	}

	if err := uc.paymentRepo.UpdateCaptureID(ctx, pay.ID, result.CaptureID, uc.clock.Now()); err != nil {
		return err
	}
	pay.CaptureID = result.CaptureID
	return nil
}

// ApplySuccessEffects 退款成功的落账动作(幂等,可被对账任务重放)
//
// 1. 支付单SUCCESS→CLOSED(已CLOSED视为命中过)
// 2. 订单pay_status镜像为CLOSED
// 3. 订单CAS REFUNDING→REFUNDED(已REFUNDED是幂等成功)
// 4. 状态日志 + 库存回补(RESTOCK流水幂等)
func (uc *ConfirmRefundUseCase) ApplySuccessEffects(ctx context.Context, refund *payment.PaymentRefund) error {
	now := uc.clock.Now()

	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		// 支付单关闭
		if _, err := uc.paymentRepo.CloseSuccessPaymentCAS(txCtx, refund.PaymentOrderID, now); err != nil {
			return err
		}

		// 订单流转
		hit, err := uc.orderRepo.ConfirmRefundCAS(txCtx, refund.OrderNo, now)
		if err != nil {
			return err
		}
		if !hit {
			current, err := uc.orderRepo.FindByOrderNo(txCtx, refund.OrderNo)
			if err != nil {
				return err
			}
			if current.Status != order.StatusRefunded && current.Status != order.StatusClosed {
				return apperrors.Newf(apperrors.ErrCodeStateConflict,
					"订单%s当前状态%s,退款落账冲突", refund.OrderNo, current.Status)
			}
			// 已落账:继续执行回补,RESTOCK流水保证重放无副作用
		} else {
			if err := uc.orderRepo.AppendStatusLog(txCtx, order.StatusLog{
				OrderNo:    refund.OrderNo,
				FromStatus: order.StatusRefunding,
				ToStatus:   order.StatusRefunded,
				Note:       "退款成功: " + refund.RefundNo,
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}

		// 库存回补
		o, err := uc.orderRepo.FindByOrderNo(txCtx, refund.OrderNo)
		if err != nil {
			return err
		}
		plan := payment.RestockPlan(o, refund)
		return uc.ledger.Apply(txCtx, refund.OrderNo, order.ChangeRestock, plan, "退款回补")
	})
	if err != nil {
		return err
	}

	uc.publishSucceeded(refund, now)
	return nil
}

// publishSucceeded 发布退款成功事件(尽力而为)
func (uc *ConfirmRefundUseCase) publishSucceeded(refund *payment.PaymentRefund, now time.Time) {
	if uc.publisher == nil {
		return
	}
	event := RefundSucceededEvent{
		OrderNo:     refund.OrderNo,
		RefundNo:    refund.RefundNo,
		Amount:      refund.Amount.Amount,
		Currency:    refund.Amount.Currency,
		SucceededAt: now.Format(time.RFC3339),
	}
	if err := uc.publisher.Publish("refund.succeeded", event); err != nil {
		log.Printf("发布refund.succeeded事件失败: refundNo=%s, err=%v", refund.RefundNo, err)
	}
}
