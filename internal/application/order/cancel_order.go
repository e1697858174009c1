package order

import (
	"context"
	"log"
	"time"

	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	"github.com/eason8811/international-shopping-sub001/internal/domain/payment"
	"github.com/eason8811/international-shopping-sub001/pkg/clock"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
	"github.com/eason8811/international-shopping-sub001/pkg/metrics"
)

// CancelOrderUseCase 取消订单用例
// 教学要点:
// 1. 用户取消和超时取消走同一条CAS路径,语义完全一致
// 2. CAS零行命中不立即报错:重读订单,已取消/已关闭视为幂等成功,
//    已支付等其他状态才是真正的冲突
// 3. 取消的副作用(释放库存、关支付单)和状态流转在同一个事务里
type CancelOrderUseCase struct {
	orderRepo   order.Repository
	paymentRepo payment.Repository
	ledger      order.StockLedger
	txManager   TxManager
	publisher   EventPublisher
	clock       clock.Clock
}

// NewCancelOrderUseCase 创建取消订单用例
func NewCancelOrderUseCase(
	orderRepo order.Repository,
	paymentRepo payment.Repository,
	ledger order.StockLedger,
	txManager TxManager,
	publisher EventPublisher,
	clk clock.Clock,
) *CancelOrderUseCase {
	return &CancelOrderUseCase{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		ledger:      ledger,
		txManager:   txManager,
		publisher:   publisher,
		clock:       clk,
	}
}

// OrderCancelledEvent 订单取消事件
type OrderCancelledEvent struct {
	OrderNo     string `json:"order_no"`
	Initiator   string `json:"initiator"` // USER | SYSTEM
	CancelledAt string `json:"cancelled_at"`
}

// CancelByUser 用户取消订单(校验归属)
func (uc *CancelOrderUseCase) CancelByUser(ctx context.Context, userID uint64, orderNo string) error {
	o, err := uc.orderRepo.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return err
	}
	if !o.IsOwnedBy(userID) {
		return apperrors.ErrForbidden
	}

	if err := uc.cancel(ctx, orderNo, "USER"); err != nil {
		return err
	}
	metrics.OrdersCancelledTotal.WithLabelValues("USER").Inc()
	return nil
}

// CancelExpired 超时取消扫描(后台任务调用)
// 返回成功取消的订单数;单笔冲突不会中断整批
func (uc *CancelOrderUseCase) CancelExpired(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	deadline := uc.clock.Now().Add(-ttl)
	orderNos, err := uc.orderRepo.ListUnpaidBefore(ctx, deadline, limit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, orderNo := range orderNos {
		if err := uc.cancel(ctx, orderNo, "SYSTEM"); err != nil {
			// 扫描和支付是并发的:候选订单在取消前完成支付是正常现象
			if apperrors.IsConflict(err) {
				log.Printf("超时取消跳过订单%s: %v", orderNo, err)
				continue
			}
			log.Printf("超时取消订单%s失败: %v", orderNo, err)
			continue
		}
		cancelled++
		metrics.OrdersCancelledTotal.WithLabelValues("SYSTEM").Inc()
	}
	return cancelled, nil
}

// cancel 取消主流程(一个事务)
func (uc *CancelOrderUseCase) cancel(ctx context.Context, orderNo, initiator string) error {
	now := uc.clock.Now()

	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orderRepo.FindByOrderNo(txCtx, orderNo)
		if err != nil {
			return err
		}
		fromStatus := o.Status

		// ========================================
		// 步骤1:CAS取消(status IN (CREATED,PENDING_PAYMENT) AND pay_status <> SUCCESS)
		// ========================================
		hit, err := uc.orderRepo.CancelUnpaidCAS(txCtx, orderNo, now)
		if err != nil {
			return err
		}
		if !hit {
			// 零行命中:重读判定,已取消/已关闭是幂等成功
			o, err = uc.orderRepo.FindByOrderNo(txCtx, orderNo)
			if err != nil {
				return err
			}
			if o.Status == order.StatusCancelled || o.Status == order.StatusClosed {
				return nil
			}
			return apperrors.Newf(apperrors.ErrCodeStateConflict,
				"订单%s当前状态%s不允许取消", orderNo, o.Status)
		}

		// ========================================
		// 步骤2:释放预占库存(RELEASE流水幂等)
		// ========================================
		release := make([]order.SkuQuantity, len(o.Items))
		for i, it := range o.Items {
			release[i] = order.SkuQuantity{SkuID: it.SkuID, Quantity: it.Quantity}
		}
		if err := uc.ledger.Apply(txCtx, orderNo, order.ChangeRelease, release, "取消释放"); err != nil {
			return err
		}

		// ========================================
		// 步骤3:关闭未完成的支付单
		// ========================================
		if err := uc.paymentRepo.CloseOpenPayments(txCtx, orderNo, now); err != nil {
			return err
		}

		// ========================================
		// 步骤4:状态日志
		// ========================================
		return uc.orderRepo.AppendStatusLog(txCtx, order.StatusLog{
			OrderNo:    orderNo,
			FromStatus: fromStatus,
			ToStatus:   order.StatusCancelled,
			Note:       "取消订单: " + initiator,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return err
	}

	uc.publishCancelled(orderNo, initiator, now)
	return nil
}

// publishCancelled 发布订单取消事件(尽力而为)
func (uc *CancelOrderUseCase) publishCancelled(orderNo, initiator string, now time.Time) {
	if uc.publisher == nil {
		return
	}
	event := OrderCancelledEvent{
		OrderNo:     orderNo,
		Initiator:   initiator,
		CancelledAt: now.Format(time.RFC3339),
	}
	if err := uc.publisher.Publish("order.cancelled", event); err != nil {
		log.Printf("发布order.cancelled事件失败: orderNo=%s, err=%v", orderNo, err)
	}
}
