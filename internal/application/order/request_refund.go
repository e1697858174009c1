package order

import (
	"context"

	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	"github.com/eason8811/international-shopping-sub001/pkg/clock"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
	"github.com/eason8811/international-shopping-sub001/pkg/metrics"
)

// RequestRefundUseCase 申请退款用例
// 只负责把订单推进到REFUNDING并记录原因快照;
// 真正的资金动作由管理端的退款编排用例执行
type RequestRefundUseCase struct {
	orderRepo order.Repository
	txManager TxManager
	clock     clock.Clock
}

// NewRequestRefundUseCase 创建申请退款用例
func NewRequestRefundUseCase(orderRepo order.Repository, txManager TxManager, clk clock.Clock) *RequestRefundUseCase {
	return &RequestRefundUseCase{orderRepo: orderRepo, txManager: txManager, clock: clk}
}

// RequestRefundRequest 申请退款请求DTO
type RequestRefundRequest struct {
	UserID     uint64
	OrderNo    string
	ReasonCode string
	ReasonText string
}

// Execute 执行申请退款
// CAS条件: status IN (PAID, FULFILLED);零行命中时重读,
// 已在REFUNDING视为幂等成功,其他状态报冲突
func (uc *RequestRefundUseCase) Execute(ctx context.Context, req RequestRefundRequest) error {
	if req.ReasonCode == "" {
		return apperrors.New(apperrors.ErrCodeInvalidParams, "退款原因代码不能为空")
	}

	o, err := uc.orderRepo.FindByOrderNo(ctx, req.OrderNo)
	if err != nil {
		return err
	}
	if !o.IsOwnedBy(req.UserID) {
		return apperrors.ErrForbidden
	}

	now := uc.clock.Now()
	reason := order.RefundReason{
		Code:      req.ReasonCode,
		Text:      req.ReasonText,
		Initiator: "USER",
	}

	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		hit, err := uc.orderRepo.RequestRefundCAS(txCtx, req.OrderNo, reason, now)
		if err != nil {
			return err
		}
		if !hit {
			current, err := uc.orderRepo.FindByOrderNo(txCtx, req.OrderNo)
			if err != nil {
				return err
			}
			if current.Status == order.StatusRefunding {
				return nil
			}
			return apperrors.Newf(apperrors.ErrCodeStateConflict,
				"订单%s当前状态%s不允许申请退款", req.OrderNo, current.Status)
		}

		return uc.orderRepo.AppendStatusLog(txCtx, order.StatusLog{
			OrderNo:    req.OrderNo,
			FromStatus: o.Status,
			ToStatus:   order.StatusRefunding,
			Note:       "用户申请退款: " + req.ReasonCode,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return err
	}

	metrics.RefundsRequestedTotal.Inc()
	return nil
}
