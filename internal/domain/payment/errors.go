package payment

import (
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// 支付领域错误定义
var (
	// ErrPaymentNotFound 未找到成功的支付单(退款的前置依赖)
	ErrPaymentNotFound = apperrors.ErrPaymentNotFound

	// ErrCaptureMissing 支付单缺少资金捕获凭证,且渠道侧也查不到
	ErrCaptureMissing = apperrors.ErrCaptureMissing

	// ErrRefundNotFound 退款单不存在
	ErrRefundNotFound = apperrors.ErrRefundNotFound
)
