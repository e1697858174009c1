package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
	"github.com/eason8811/international-shopping-sub001/internal/domain/payment"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// paymentRepository 支付/退款仓储实现(MySQL)
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓储
func NewPaymentRepository(db *gorm.DB) payment.Repository {
	return &paymentRepository{db: db}
}

// CreatePlaceholder 创建占位支付单
func (r *paymentRepository) CreatePlaceholder(ctx context.Context, p *payment.PaymentOrder) error {
	model := toPaymentModel(p)

	db := getDB(ctx, r.db)
	if err := db.Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建支付单失败")
	}

	p.ID = model.ID
	return nil
}

// FindPaymentByID 按ID查支付单
func (r *paymentRepository) FindPaymentByID(ctx context.Context, id uint64) (*payment.PaymentOrder, error) {
	var model PaymentOrderModel
	db := getDB(ctx, r.db)
	if err := db.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(err, "查询支付单失败")
	}
	return toPaymentEntity(&model), nil
}

// FindSuccessPayment 查订单的成功支付单
func (r *paymentRepository) FindSuccessPayment(ctx context.Context, orderNo string) (*payment.PaymentOrder, error) {
	var model PaymentOrderModel
	db := getDB(ctx, r.db)
	err := db.Where("order_no = ? AND status = ?", orderNo, string(payment.StatusSuccess)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(err, "查询支付单失败")
	}
	return toPaymentEntity(&model), nil
}

// UpdateCaptureID 回填资金捕获凭证
func (r *paymentRepository) UpdateCaptureID(ctx context.Context, paymentID uint64, captureID string, now time.Time) error {
	db := getDB(ctx, r.db)
	result := db.Model(&PaymentOrderModel{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"capture_id": captureID,
			"updated_at": now,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "回填捕获凭证失败")
	}
	if result.RowsAffected == 0 {
		return payment.ErrPaymentNotFound
	}
	return nil
}

// CloseSuccessPaymentCAS 支付单SUCCESS→CLOSED
func (r *paymentRepository) CloseSuccessPaymentCAS(ctx context.Context, paymentID uint64, now time.Time) (bool, error) {
	db := getDB(ctx, r.db)
	result := db.Model(&PaymentOrderModel{}).
		Where("id = ? AND status = ?", paymentID, string(payment.StatusSuccess)).
		Updates(map[string]interface{}{
			"status":     string(payment.StatusClosed),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "关闭支付单失败")
	}
	return result.RowsAffected > 0, nil
}

// CloseOpenPayments 关闭订单下所有未完成支付单
func (r *paymentRepository) CloseOpenPayments(ctx context.Context, orderNo string, now time.Time) error {
	db := getDB(ctx, r.db)
	err := db.Model(&PaymentOrderModel{}).
		Where("order_no = ? AND status IN ?", orderNo,
			[]string{string(payment.StatusNone), string(payment.StatusInit), string(payment.StatusPending)}).
		Updates(map[string]interface{}{
			"status":     string(payment.StatusClosed),
			"updated_at": now,
		}).Error
	if err != nil {
		return apperrors.Wrap(err, "关闭支付单失败")
	}
	return nil
}

// CreateRefund 落库退款单(含明细)
func (r *paymentRepository) CreateRefund(ctx context.Context, rf *payment.PaymentRefund) error {
	model := toRefundModel(rf)

	db := getDB(ctx, r.db)
	if err := db.Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建退款单失败")
	}

	rf.ID = model.ID
	for i := range rf.Items {
		rf.Items[i].ID = model.Items[i].ID
		rf.Items[i].RefundID = model.ID
	}
	return nil
}

// FindRefundByNo 按退款单号查退款单
func (r *paymentRepository) FindRefundByNo(ctx context.Context, refundNo string) (*payment.PaymentRefund, error) {
	var model PaymentRefundModel
	db := getDB(ctx, r.db)
	err := db.Preload("Items").Where("refund_no = ?", refundNo).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrRefundNotFound
		}
		return nil, apperrors.Wrap(err, "查询退款单失败")
	}
	return toRefundEntity(&model), nil
}

// FindOpenRefund 查订单进行中的退款单,没有返回(nil, nil)
func (r *paymentRepository) FindOpenRefund(ctx context.Context, orderNo string) (*payment.PaymentRefund, error) {
	var model PaymentRefundModel
	db := getDB(ctx, r.db)
	err := db.Preload("Items").
		Where("order_no = ? AND status IN ?", orderNo,
			[]string{string(payment.RefundInit), string(payment.RefundPending)}).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "查询退款单失败")
	}
	return toRefundEntity(&model), nil
}

// UpdateRefundResult 发起渠道退款后回填结果
func (r *paymentRepository) UpdateRefundResult(ctx context.Context, refundNo string, externalRefundID string,
	status payment.RefundStatus, requestPayload, responsePayload string, now time.Time) error {
	db := getDB(ctx, r.db)
	result := db.Model(&PaymentRefundModel{}).
		Where("refund_no = ?", refundNo).
		Updates(map[string]interface{}{
			"external_refund_id": externalRefundID,
			"status":             string(status),
			"request_payload":    requestPayload,
			"response_payload":   responsePayload,
			"updated_at":         now,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "回填退款结果失败")
	}
	if result.RowsAffected == 0 {
		return payment.ErrRefundNotFound
	}
	return nil
}

// UpdateRefundStatusCAS 对账更新退款状态
func (r *paymentRepository) UpdateRefundStatusCAS(ctx context.Context, refundNo string,
	to payment.RefundStatus, polledAt time.Time) (bool, error) {
	db := getDB(ctx, r.db)
	result := db.Model(&PaymentRefundModel{}).
		Where("refund_no = ? AND status IN ?", refundNo,
			[]string{string(payment.RefundInit), string(payment.RefundPending)}).
		Updates(map[string]interface{}{
			"status":         string(to),
			"last_polled_at": polledAt,
			"updated_at":     polledAt,
		})
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "更新退款状态失败")
	}
	return result.RowsAffected > 0, nil
}

// ListRefundsToSync 取待对账的退款单,按updated_at升序(最久未动的先处理)
func (r *paymentRepository) ListRefundsToSync(ctx context.Context, limit int) ([]*payment.PaymentRefund, error) {
	var models []PaymentRefundModel
	db := getDB(ctx, r.db)
	err := db.Preload("Items").
		Where("status IN ?", []string{
			string(payment.RefundInit),
			string(payment.RefundPending),
			string(payment.RefundSuccess),
		}).
		Order("updated_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询待对账退款单失败")
	}

	refunds := make([]*payment.PaymentRefund, len(models))
	for i := range models {
		refunds[i] = toRefundEntity(&models[i])
	}
	return refunds, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

func toPaymentModel(p *payment.PaymentOrder) *PaymentOrderModel {
	return &PaymentOrderModel{
		ID:              p.ID,
		PaymentNo:       p.PaymentNo,
		OrderNo:         p.OrderNo,
		Channel:         string(p.Channel),
		Status:          string(p.Status),
		Amount:          p.Amount.Amount,
		Currency:        p.Amount.Currency,
		ExternalOrderID: p.ExternalOrderID,
		CaptureID:       p.CaptureID,
		RequestPayload:  p.RequestPayload,
		ResponsePayload: p.ResponsePayload,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toPaymentEntity(model *PaymentOrderModel) *payment.PaymentOrder {
	return &payment.PaymentOrder{
		ID:              model.ID,
		PaymentNo:       model.PaymentNo,
		OrderNo:         model.OrderNo,
		Channel:         payment.Channel(model.Channel),
		Status:          payment.Status(model.Status),
		Amount:          money.Money{Amount: model.Amount, Currency: model.Currency},
		ExternalOrderID: model.ExternalOrderID,
		CaptureID:       model.CaptureID,
		RequestPayload:  model.RequestPayload,
		ResponsePayload: model.ResponsePayload,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toRefundModel(r *payment.PaymentRefund) *PaymentRefundModel {
	items := make([]RefundItemModel, len(r.Items))
	for i, it := range r.Items {
		items[i] = RefundItemModel{
			ID:       it.ID,
			RefundID: it.RefundID,
			SkuID:    it.SkuID,
			Quantity: it.Quantity,
			Amount:   it.Amount.Amount,
		}
	}

	return &PaymentRefundModel{
		ID:               r.ID,
		RefundNo:         r.RefundNo,
		OrderNo:          r.OrderNo,
		PaymentOrderID:   r.PaymentOrderID,
		ExternalRefundID: r.ExternalRefundID,
		ClientRefundNo:   r.ClientRefundNo,
		Amount:           r.Amount.Amount,
		ItemsAmount:      r.ItemsAmount.Amount,
		ShippingAmount:   r.ShippingAmount.Amount,
		Currency:         r.Amount.Currency,
		Status:           string(r.Status),
		Full:             r.Full,
		ReasonCode:       r.ReasonCode,
		ReasonText:       truncate(r.ReasonText, 255),
		Initiator:        r.Initiator,
		RequestPayload:   r.RequestPayload,
		ResponsePayload:  r.ResponsePayload,
		Items:            items,
		LastPolledAt:     r.LastPolledAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func toRefundEntity(model *PaymentRefundModel) *payment.PaymentRefund {
	items := make([]payment.RefundItem, len(model.Items))
	for i, it := range model.Items {
		items[i] = payment.RefundItem{
			ID:       it.ID,
			RefundID: it.RefundID,
			SkuID:    it.SkuID,
			Quantity: it.Quantity,
			Amount:   money.Money{Amount: it.Amount, Currency: model.Currency},
		}
	}

	return &payment.PaymentRefund{
		ID:               model.ID,
		RefundNo:         model.RefundNo,
		OrderNo:          model.OrderNo,
		PaymentOrderID:   model.PaymentOrderID,
		ExternalRefundID: model.ExternalRefundID,
		ClientRefundNo:   model.ClientRefundNo,
		Amount:           money.Money{Amount: model.Amount, Currency: model.Currency},
		ItemsAmount:      money.Money{Amount: model.ItemsAmount, Currency: model.Currency},
		ShippingAmount:   money.Money{Amount: model.ShippingAmount, Currency: model.Currency},
		Status:           payment.RefundStatus(model.Status),
		Full:             model.Full,
		ReasonCode:       model.ReasonCode,
		ReasonText:       model.ReasonText,
		Initiator:        model.Initiator,
		RequestPayload:   model.RequestPayload,
		ResponsePayload:  model.ResponsePayload,
		Items:            items,
		LastPolledAt:     model.LastPolledAt,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}
