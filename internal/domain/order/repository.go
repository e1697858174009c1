package order

import (
	"context"
	"time"
)

// Repository 订单仓储接口(依赖倒置原则)
// 教学要点:
// 1. 由domain层定义接口,infrastructure层实现
// 2. 支持事务操作(通过context传递事务)
// 3. 状态流转类操作都是CAS(带旧状态条件的UPDATE),返回是否命中:
//    零行命中不是错误,由用例重读订单判断是"已经到位"还是真冲突
type Repository interface {
	// Create 创建订单(含明细)
	// 幂等键命中唯一索引时返回ErrDuplicateOrder,调用方按幂等键重读
	Create(ctx context.Context, o *Order) error

	// FindByOrderNo 根据订单号查找订单(含明细)
	FindByOrderNo(ctx context.Context, orderNo string) (*Order, error)

	// FindByIdempotencyKey 根据创建幂等键查找订单
	// 幂等键的作用域是(用户, 键):不同用户可以使用相同的键,互不可见
	FindByIdempotencyKey(ctx context.Context, userID uint64, key string) (*Order, error)

	// ListByUserID 查询用户的订单列表(分页)
	ListByUserID(ctx context.Context, userID uint64, page, pageSize int) ([]*Order, int64, error)

	// ListUnpaidBefore 取超时未支付的候选订单号(按创建时间升序)
	ListUnpaidBefore(ctx context.Context, deadline time.Time, limit int) ([]string, error)

	// CancelUnpaidCAS 取消未支付订单
	// 条件: status IN (CREATED, PENDING_PAYMENT) AND pay_status <> SUCCESS
	CancelUnpaidCAS(ctx context.Context, orderNo string, now time.Time) (bool, error)

	// RequestRefundCAS 申请退款并记录原因快照
	// 条件: status IN (PAID, FULFILLED)
	RequestRefundCAS(ctx context.Context, orderNo string, reason RefundReason, now time.Time) (bool, error)

	// ConfirmRefundCAS 退款完成
	// 条件: status = REFUNDING; 同时把pay_status镜像为CLOSED
	ConfirmRefundCAS(ctx context.Context, orderNo string, now time.Time) (bool, error)

	// ChangeAddressCAS 一次性改址
	// 条件: status IN (CREATED, PENDING_PAYMENT, PAID) AND address_changed = 0
	ChangeAddressCAS(ctx context.Context, orderNo string, addr AddressSnapshot, now time.Time) (bool, error)

	// UpdatePayStatus 更新订单侧支付状态镜像
	UpdatePayStatus(ctx context.Context, orderNo string, ps PayStatus, now time.Time) error

	// BindActivePayment 绑定生效支付单(仅当尚未绑定时生效)
	BindActivePayment(ctx context.Context, orderNo string, paymentID uint64) error

	// AppendStatusLog 追加状态流转日志(note超长截断到255)
	AppendStatusLog(ctx context.Context, log StatusLog) error

	// ClearCartItems 清理购物车中已下单的SKU
	ClearCartItems(ctx context.Context, userID uint64, skuIDs []uint64) error

	// RecordAppliedDiscounts 记录订单使用的优惠(审计用)
	RecordAppliedDiscounts(ctx context.Context, o *Order) error
}
