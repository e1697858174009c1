package order

import (
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = apperrors.ErrOrderNotFound

	// ErrDuplicateOrder 幂等键冲突(同一请求重复提交)
	ErrDuplicateOrder = apperrors.New(apperrors.ErrCodeStateConflict, "订单已存在(幂等键重复)")

	// ErrInvalidOrderItems 订单明细不合法
	ErrInvalidOrderItems = apperrors.New(apperrors.ErrCodeInvalidParams, "订单明细不能为空")

	// ErrInvalidQuantity 购买数量不合法
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "购买数量必须大于0")

	// ErrInsufficientStock 库存不足或SKU已下架
	ErrInsufficientStock = apperrors.ErrInsufficientStock
)
