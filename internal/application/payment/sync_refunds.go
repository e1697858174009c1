package payment

import (
	"context"
	"log"

	"github.com/eason8811/international-shopping-sub001/internal/domain/payment"
	"github.com/eason8811/international-shopping-sub001/pkg/metrics"
)

// SyncRefundsUseCase 退款对账用例
// 教学要点:对账是退款链路的最后一道防线
// 1. 捞INIT/PENDING/SUCCESS三种状态:
//    - INIT/PENDING要去渠道问结果
//    - SUCCESS要重放落账动作(上次落账可能做了一半崩了)
// 2. 按updated_at升序,最久没动过的先处理
// 3. 单笔失败只记日志和计数,绝不中断整批
type SyncRefundsUseCase struct {
	paymentRepo payment.Repository
	gateway     payment.Gateway
	confirm     *ConfirmRefundUseCase
}

// NewSyncRefundsUseCase 创建对账用例
func NewSyncRefundsUseCase(paymentRepo payment.Repository, gateway payment.Gateway,
	confirm *ConfirmRefundUseCase) *SyncRefundsUseCase {
	return &SyncRefundsUseCase{paymentRepo: paymentRepo, gateway: gateway, confirm: confirm}
}

// Execute 执行一轮对账,返回(处理成功数, 失败数)
// limit夹取到[1,200]
func (uc *SyncRefundsUseCase) Execute(ctx context.Context, limit int) (int, int, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	refunds, err := uc.paymentRepo.ListRefundsToSync(ctx, limit)
	if err != nil {
		return 0, 0, err
	}

	synced, failed := 0, 0
	for _, refund := range refunds {
		if err := uc.syncOne(ctx, refund); err != nil {
			log.Printf("对账退款单%s失败: %v", refund.RefundNo, err)
			metrics.RefundSyncTotal.WithLabelValues("error").Inc()
			failed++
			continue
		}
		synced++
	}

	if len(refunds) > 0 {
		log.Printf("退款对账完成: 捞取=%d, 成功=%d, 失败=%d", len(refunds), synced, failed)
	}
	return synced, failed, nil
}

// syncOne 对账单笔退款
func (uc *SyncRefundsUseCase) syncOne(ctx context.Context, refund *payment.PaymentRefund) error {
	// 本地已SUCCESS:只重放落账(幂等),不再碰渠道
	if refund.Status == payment.RefundSuccess {
		if err := uc.confirm.ApplySuccessEffects(ctx, refund); err != nil {
			return err
		}
		metrics.RefundSyncTotal.WithLabelValues("success").Inc()
		return nil
	}

	// 渠道侧还没有退款ID:说明RefundCapture从来没成功返回过,
	// 渠道幂等键保证重新发起也不会退两次,这里先跳过留给管理端重试
	if refund.ExternalRefundID == "" {
		metrics.RefundSyncTotal.WithLabelValues("pending").Inc()
		return nil
	}

	result, err := uc.gateway.GetRefund(ctx, refund.ExternalRefundID)
	if err != nil {
		return err
	}

	status := payment.MapPollStatus(result.Status)
	now := uc.confirm.clock.Now()

	if status == payment.RefundPending {
		// 渠道还在处理:只刷新轮询时间
		if _, err := uc.paymentRepo.UpdateRefundStatusCAS(ctx, refund.RefundNo,
			payment.RefundPending, now); err != nil {
			return err
		}
		metrics.RefundSyncTotal.WithLabelValues("pending").Inc()
		return nil
	}

	hit, err := uc.paymentRepo.UpdateRefundStatusCAS(ctx, refund.RefundNo, status, now)
	if err != nil {
		return err
	}
	if !hit {
		// 并发对账或管理端操作已经推进了状态,本轮不再重复落账
		metrics.RefundSyncTotal.WithLabelValues("pending").Inc()
		return nil
	}

	switch status {
	case payment.RefundSuccess:
		refund.Status = payment.RefundSuccess
		if err := uc.confirm.ApplySuccessEffects(ctx, refund); err != nil {
			return err
		}
		metrics.RefundSyncTotal.WithLabelValues("success").Inc()
	case payment.RefundFail:
		// 终态:该退款单作废,重试需开新退款单
		log.Printf("退款单%s渠道侧失败: 渠道状态=%s", refund.RefundNo, result.Status)
		metrics.RefundSyncTotal.WithLabelValues("failure").Inc()
	}
	return nil
}
