package order

import (
	"context"

	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// QueryOrdersUseCase 订单查询用例(纯读,不开事务)
type QueryOrdersUseCase struct {
	orderRepo order.Repository
}

// NewQueryOrdersUseCase 创建订单查询用例
func NewQueryOrdersUseCase(orderRepo order.Repository) *QueryOrdersUseCase {
	return &QueryOrdersUseCase{orderRepo: orderRepo}
}

// GetByUser 查询单笔订单,校验归属
func (uc *QueryOrdersUseCase) GetByUser(ctx context.Context, userID uint64, orderNo string) (*order.Order, error) {
	o, err := uc.orderRepo.FindByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, apperrors.ErrForbidden
	}
	return o, nil
}

// ListByUser 分页查询用户订单,page从1开始
func (uc *QueryOrdersUseCase) ListByUser(ctx context.Context, userID uint64, page, pageSize int) ([]*order.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return uc.orderRepo.ListByUserID(ctx, userID, page, pageSize)
}
