package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// orderRepository 订单仓储实现(MySQL)
// 教学要点:
// 1. Order和OrderItem是聚合关系,必须一起保存
// 2. 查询时使用Preload预加载明细,避免N+1问题
// 3. 状态流转类UPDATE都带旧状态条件(CAS),返回是否命中
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单(含明细)
// 幂等键命中唯一索引时返回ErrDuplicateOrder,由用例按幂等键重读
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)

	db := getDB(ctx, r.db)
	if err := db.Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return order.ErrDuplicateOrder
		}
		return apperrors.Wrap(err, "创建订单失败")
	}

	// 回填自增ID
	o.ID = model.ID
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}

	return nil
}

// FindByOrderNo 根据订单号查找订单
func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*order.Order, error) {
	return r.findOne(ctx, "order_no = ?", orderNo)
}

// FindByIdempotencyKey 根据创建幂等键查找订单, 键的作用域是单个用户
func (r *orderRepository) FindByIdempotencyKey(ctx context.Context, userID uint64, key string) (*order.Order, error) {
	return r.findOne(ctx, "user_id = ? AND idempotency_key = ?", userID, key)
}

func (r *orderRepository) findOne(ctx context.Context, query string, args ...interface{}) (*order.Order, error) {
	var model OrderModel
	db := getDB(ctx, r.db)
	err := db.Preload("Items").Where(query, args...).First(&model).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}

	return toOrderEntity(&model), nil
}

// ListByUserID 查询用户的订单列表
func (r *orderRepository) ListByUserID(ctx context.Context, userID uint64, page, pageSize int) ([]*order.Order, int64, error) {
	var models []OrderModel
	var total int64

	db := getDB(ctx, r.db)
	query := db.Model(&OrderModel{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Items").
		Order("created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&models).Error

	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}

	return orders, total, nil
}

// ListUnpaidBefore 取超时未支付的候选订单号
func (r *orderRepository) ListUnpaidBefore(ctx context.Context, deadline time.Time, limit int) ([]string, error) {
	var orderNos []string
	db := getDB(ctx, r.db)
	err := db.Model(&OrderModel{}).
		Where("status IN ? AND pay_status <> ? AND created_at < ?",
			[]string{string(order.StatusCreated), string(order.StatusPendingPayment)},
			string(order.PayStatusSuccess), deadline).
		Order("created_at ASC").
		Limit(limit).
		Pluck("order_no", &orderNos).Error

	if err != nil {
		return nil, apperrors.Wrap(err, "查询超时订单失败")
	}
	return orderNos, nil
}

// CancelUnpaidCAS 取消未支付订单
// 零行命中不是错误:可能已支付,也可能已被并发取消,由用例重读判定
func (r *orderRepository) CancelUnpaidCAS(ctx context.Context, orderNo string, now time.Time) (bool, error) {
	db := getDB(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("order_no = ? AND status IN ? AND pay_status <> ?",
			orderNo,
			[]string{string(order.StatusCreated), string(order.StatusPendingPayment)},
			string(order.PayStatusSuccess)).
		Updates(map[string]interface{}{
			"status":     string(order.StatusCancelled),
			"pay_status": string(order.PayStatusClosed),
			"updated_at": now,
		})

	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "取消订单失败")
	}
	return result.RowsAffected > 0, nil
}

// RequestRefundCAS 申请退款并记录原因快照
func (r *orderRepository) RequestRefundCAS(ctx context.Context, orderNo string, reason order.RefundReason, now time.Time) (bool, error) {
	db := getDB(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("order_no = ? AND status IN ?",
			orderNo,
			[]string{string(order.StatusPaid), string(order.StatusFulfilled)}).
		Updates(&OrderModel{
			Status:       string(order.StatusRefunding),
			RefundReason: &reason,
			UpdatedAt:    now,
		})

	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "申请退款失败")
	}
	return result.RowsAffected > 0, nil
}

// ConfirmRefundCAS 退款完成(同时把pay_status镜像为CLOSED)
func (r *orderRepository) ConfirmRefundCAS(ctx context.Context, orderNo string, now time.Time) (bool, error) {
	db := getDB(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("order_no = ? AND status = ?", orderNo, string(order.StatusRefunding)).
		Updates(map[string]interface{}{
			"status":     string(order.StatusRefunded),
			"pay_status": string(order.PayStatusClosed),
			"updated_at": now,
		})

	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "确认退款失败")
	}
	return result.RowsAffected > 0, nil
}

// ChangeAddressCAS 一次性改址
func (r *orderRepository) ChangeAddressCAS(ctx context.Context, orderNo string, addr order.AddressSnapshot, now time.Time) (bool, error) {
	db := getDB(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("order_no = ? AND status IN ? AND address_changed = ?",
			orderNo,
			[]string{string(order.StatusCreated), string(order.StatusPendingPayment), string(order.StatusPaid)},
			false).
		Updates(&OrderModel{
			Address:        &addr,
			AddressChanged: true,
			UpdatedAt:      now,
		})

	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "修改收货地址失败")
	}
	return result.RowsAffected > 0, nil
}

// UpdatePayStatus 更新订单侧支付状态镜像
func (r *orderRepository) UpdatePayStatus(ctx context.Context, orderNo string, ps order.PayStatus, now time.Time) error {
	db := getDB(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("order_no = ?", orderNo).
		Updates(map[string]interface{}{
			"pay_status": string(ps),
			"updated_at": now,
		})

	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新支付状态失败")
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// BindActivePayment 绑定生效支付单(仅当尚未绑定时生效,重复绑定静默跳过)
func (r *orderRepository) BindActivePayment(ctx context.Context, orderNo string, paymentID uint64) error {
	db := getDB(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("order_no = ? AND active_payment_id IS NULL", orderNo).
		Update("active_payment_id", paymentID)

	if result.Error != nil {
		return apperrors.Wrap(result.Error, "绑定支付单失败")
	}
	return nil
}

// AppendStatusLog 追加状态流转日志
func (r *orderRepository) AppendStatusLog(ctx context.Context, l order.StatusLog) error {
	db := getDB(ctx, r.db)
	model := OrderStatusLogModel{
		OrderNo:    l.OrderNo,
		FromStatus: string(l.FromStatus),
		ToStatus:   string(l.ToStatus),
		Note:       truncate(l.Note, 255),
		CreatedAt:  l.CreatedAt,
	}
	if err := db.Create(&model).Error; err != nil {
		return apperrors.Wrap(err, "写入状态日志失败")
	}
	return nil
}

// ClearCartItems 清理购物车中已下单的SKU
func (r *orderRepository) ClearCartItems(ctx context.Context, userID uint64, skuIDs []uint64) error {
	if len(skuIDs) == 0 {
		return nil
	}
	db := getDB(ctx, r.db)
	err := db.Where("user_id = ? AND sku_id IN ?", userID, skuIDs).
		Delete(&CartItemModel{}).Error
	if err != nil {
		return apperrors.Wrap(err, "清理购物车失败")
	}
	return nil
}

// RecordAppliedDiscounts 记录订单使用的优惠
func (r *orderRepository) RecordAppliedDiscounts(ctx context.Context, o *order.Order) error {
	var rows []DiscountAppliedModel
	for _, it := range o.Items {
		if it.DiscountCodeID == 0 {
			continue
		}
		rows = append(rows, DiscountAppliedModel{
			OrderNo:        o.OrderNo,
			SkuID:          it.SkuID,
			DiscountCodeID: it.DiscountCodeID,
			CreatedAt:      o.CreatedAt,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	db := getDB(ctx, r.db)
	if err := db.Create(&rows).Error; err != nil {
		return apperrors.Wrap(err, "记录优惠使用失败")
	}
	return nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toOrderModel 领域实体 → GORM模型
func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ID:             item.ID,
			OrderID:        item.OrderID,
			ProductID:      item.ProductID,
			SkuID:          item.SkuID,
			DiscountCodeID: item.DiscountCodeID,
			Title:          item.Title,
			SkuAttrs:       item.SkuAttrs,
			CoverImageURL:  item.CoverImageURL,
			UnitPrice:      item.UnitPrice.Amount,
			Quantity:       item.Quantity,
			Subtotal:       item.Subtotal.Amount,
		}
	}

	var activePaymentID *uint64
	if o.ActivePaymentID != 0 {
		id := o.ActivePaymentID
		activePaymentID = &id
	}

	// 空幂等键落库为NULL, 避免撞上(user_id, idempotency_key)唯一索引
	var idemKey *string
	if o.IdempotencyKey != "" {
		key := o.IdempotencyKey
		idemKey = &key
	}

	return &OrderModel{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		UserID:          o.UserID,
		Currency:        o.Currency,
		TotalAmount:     o.TotalAmount.Amount,
		DiscountAmount:  o.DiscountAmount.Amount,
		ShippingAmount:  o.ShippingAmount.Amount,
		TaxAmount:       o.TaxAmount.Amount,
		PayAmount:       o.PayAmount.Amount,
		Status:          string(o.Status),
		PayStatus:       string(o.PayStatus),
		Address:         o.Address,
		AddressChanged:  o.AddressChanged,
		RefundReason:    o.RefundReason,
		IdempotencyKey:  idemKey,
		ActivePaymentID: activePaymentID,
		Items:           items,
		PaidAt:          o.PaidAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// toOrderEntity GORM模型 → 领域实体
func toOrderEntity(model *OrderModel) *order.Order {
	items := make([]order.OrderItem, len(model.Items))
	for i, item := range model.Items {
		items[i] = order.OrderItem{
			ID:             item.ID,
			OrderID:        item.OrderID,
			ProductID:      item.ProductID,
			SkuID:          item.SkuID,
			DiscountCodeID: item.DiscountCodeID,
			Title:          item.Title,
			SkuAttrs:       item.SkuAttrs,
			CoverImageURL:  item.CoverImageURL,
			UnitPrice:      money.Money{Amount: item.UnitPrice, Currency: model.Currency},
			Quantity:       item.Quantity,
			Subtotal:       money.Money{Amount: item.Subtotal, Currency: model.Currency},
		}
	}

	var idemKey string
	if model.IdempotencyKey != nil {
		idemKey = *model.IdempotencyKey
	}

	var activePaymentID uint64
	if model.ActivePaymentID != nil {
		activePaymentID = *model.ActivePaymentID
	}

	return &order.Order{
		ID:              model.ID,
		OrderNo:         model.OrderNo,
		UserID:          model.UserID,
		Currency:        model.Currency,
		TotalAmount:     money.Money{Amount: model.TotalAmount, Currency: model.Currency},
		DiscountAmount:  money.Money{Amount: model.DiscountAmount, Currency: model.Currency},
		ShippingAmount:  money.Money{Amount: model.ShippingAmount, Currency: model.Currency},
		TaxAmount:       money.Money{Amount: model.TaxAmount, Currency: model.Currency},
		PayAmount:       money.Money{Amount: model.PayAmount, Currency: model.Currency},
		Status:          order.Status(model.Status),
		PayStatus:       order.PayStatus(model.PayStatus),
		Address:         model.Address,
		AddressChanged:  model.AddressChanged,
		RefundReason:    model.RefundReason,
		IdempotencyKey:  idemKey,
		ActivePaymentID: activePaymentID,
		Items:           items,
		PaidAt:          model.PaidAt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
