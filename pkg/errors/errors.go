package errors

import (
	"errors"
	"fmt"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不要直接暴露HTTP状态码）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端（防止泄露敏感信息）
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf 格式化创建AppError
func Newf(code int, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为业务错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// WrapCode 用指定错误码包装底层错误
func WrapCode(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、外部服务调用失败）
//
// 订单/退款链路的五类错误及其码段：
// - 参数非法（40900-40999）
// - 状态冲突（40100段之外，业务冲突统一在40000-40099）
// - 库存不足（40001）
// - 依赖缺失（40400-40499，所需记录不存在）
// - 网关失败（50200-50299，外部支付渠道异常）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误

	// 外部网关错误（50200-50299）
	ErrCodeGatewayFailure = 50200 // 支付网关调用失败
	ErrCodeGatewayTimeout = 50201 // 支付网关超时

	// 认证授权错误（40100-40199）
	ErrCodeUnauthorized    = 40100 // 未登录
	ErrCodeInvalidToken    = 40101 // Token无效
	ErrCodeTokenExpired    = 40102 // Token过期
	ErrCodeInvalidPassword = 40103 // 密码错误
	ErrCodeForbidden       = 40104 // 无权限

	// 依赖缺失（40400-40499）
	ErrCodeNotFound        = 40400 // 资源不存在(通用)
	ErrCodeUserNotFound    = 40401 // 用户不存在
	ErrCodeOrderNotFound   = 40403 // 订单不存在
	ErrCodeSkuNotFound     = 40404 // SKU不存在
	ErrCodePaymentNotFound = 40405 // 支付单不存在
	ErrCodeRefundNotFound  = 40406 // 退款单不存在
	ErrCodeCaptureMissing  = 40407 // 缺少资金捕获凭证

	// 业务规则错误（40000-40099）
	ErrCodeStateConflict     = 40000 // 状态冲突(通用)
	ErrCodeInsufficientStock = 40001 // 库存不足
	ErrCodeAddressChanged    = 40002 // 收货地址已变更过
	ErrCodeRefundInFlight    = 40003 // 已有进行中的退款
	ErrCodeEmailDuplicate    = 40004 // 邮箱已注册

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
	ErrCodeWeakPassword  = 40902 // 密码强度不足
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError    = New(ErrCodeRedisError, "缓存服务错误")

	// 认证授权
	ErrUnauthorized    = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken    = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired    = New(ErrCodeTokenExpired, "Token已过期")
	ErrInvalidPassword = New(ErrCodeInvalidPassword, "邮箱或密码错误")
	ErrForbidden       = New(ErrCodeForbidden, "无权限访问")

	// 依赖缺失
	ErrUserNotFound    = New(ErrCodeUserNotFound, "用户不存在")
	ErrOrderNotFound   = New(ErrCodeOrderNotFound, "订单不存在")
	ErrSkuNotFound     = New(ErrCodeSkuNotFound, "SKU不存在或未上架")
	ErrPaymentNotFound = New(ErrCodePaymentNotFound, "未找到成功的支付单")
	ErrRefundNotFound  = New(ErrCodeRefundNotFound, "退款单不存在")
	ErrCaptureMissing  = New(ErrCodeCaptureMissing, "支付单缺少资金捕获凭证")

	// 业务规则
	ErrStateConflict     = New(ErrCodeStateConflict, "当前状态不允许此操作")
	ErrInsufficientStock = New(ErrCodeInsufficientStock, "库存不足")
	ErrAddressChanged    = New(ErrCodeAddressChanged, "收货地址只允许修改一次")
	ErrEmailDuplicate    = New(ErrCodeEmailDuplicate, "邮箱已注册")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
	ErrWeakPassword  = New(ErrCodeWeakPassword, "密码需8-20位且同时包含字母和数字")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// IsCode 判断错误是否携带指定业务错误码
func IsCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsConflict 判断是否为状态冲突类错误
func IsConflict(err error) bool {
	return IsCode(err, ErrCodeStateConflict) || IsCode(err, ErrCodeAddressChanged)
}

// IsGatewayFailure 判断是否为支付网关失败
func IsGatewayFailure(err error) bool {
	return IsCode(err, ErrCodeGatewayFailure) || IsCode(err, ErrCodeGatewayTimeout)
}
