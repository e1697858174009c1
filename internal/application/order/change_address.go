package order

import (
	"context"
	"log"
	"time"

	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	"github.com/eason8811/international-shopping-sub001/pkg/clock"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// AddressGuard 改址一次性标记端口(Redis SETNX实现)
// 只是快速失败路径:真正的一次性约束由orders.address_changed的条件UPDATE兜底
type AddressGuard interface {
	MarkAddressChanged(ctx context.Context, orderNo string, ttl time.Duration) (bool, error)
	UnmarkAddressChanged(ctx context.Context, orderNo string) error
}

// ChangeAddressUseCase 修改收货地址用例
// 教学要点:一次性操作的双层防护
// 1. Redis SETNX先抢标记,并发重复请求在这里就被挡掉
// 2. 数据库条件UPDATE(address_changed = 0)是最终裁决,
//    Redis标记丢失(过期、重启)也不会让订单被改第二次
type ChangeAddressUseCase struct {
	orderRepo order.Repository
	guard     AddressGuard
	clock     clock.Clock
}

// NewChangeAddressUseCase 创建改址用例
func NewChangeAddressUseCase(orderRepo order.Repository, guard AddressGuard, clk clock.Clock) *ChangeAddressUseCase {
	return &ChangeAddressUseCase{orderRepo: orderRepo, guard: guard, clock: clk}
}

// ChangeAddressRequest 改址请求DTO
type ChangeAddressRequest struct {
	UserID  uint64
	OrderNo string
	Address order.AddressSnapshot
}

// markTTL 改址标记的存活时间,只要晚于订单终态即可
const markTTL = 30 * 24 * time.Hour

// Execute 执行改址
func (uc *ChangeAddressUseCase) Execute(ctx context.Context, req ChangeAddressRequest) error {
	if req.Address.Receiver == "" || req.Address.Detail == "" {
		return apperrors.New(apperrors.ErrCodeInvalidParams, "收件人和详细地址不能为空")
	}

	o, err := uc.orderRepo.FindByOrderNo(ctx, req.OrderNo)
	if err != nil {
		return err
	}
	if !o.IsOwnedBy(req.UserID) {
		return apperrors.ErrForbidden
	}

	// 快速失败:标记已存在说明这单已经改过地址
	if uc.guard != nil {
		ok, err := uc.guard.MarkAddressChanged(ctx, req.OrderNo, markTTL)
		if err != nil {
			// Redis故障降级:跳过快速路径,靠数据库兜底
			log.Printf("改址标记写入失败,降级到数据库判定: orderNo=%s, err=%v", req.OrderNo, err)
		} else if !ok {
			return apperrors.ErrAddressChanged
		}
	}

	hit, err := uc.orderRepo.ChangeAddressCAS(ctx, req.OrderNo, req.Address, uc.clock.Now())
	if err != nil {
		uc.rollbackMark(ctx, req.OrderNo)
		return err
	}
	if !hit {
		// 零行命中:要么已经改过,要么状态不允许
		uc.rollbackMark(ctx, req.OrderNo)
		current, err := uc.orderRepo.FindByOrderNo(ctx, req.OrderNo)
		if err != nil {
			return err
		}
		if current.AddressChanged {
			return apperrors.ErrAddressChanged
		}
		return apperrors.Newf(apperrors.ErrCodeStateConflict,
			"订单%s当前状态%s不允许修改地址", req.OrderNo, current.Status)
	}

	return nil
}

// rollbackMark 数据库没改成时回滚Redis标记
func (uc *ChangeAddressUseCase) rollbackMark(ctx context.Context, orderNo string) {
	if uc.guard == nil {
		return
	}
	if err := uc.guard.UnmarkAddressChanged(ctx, orderNo); err != nil {
		log.Printf("回滚改址标记失败: orderNo=%s, err=%v", orderNo, err)
	}
}
