package dto

import (
	"github.com/eason8811/international-shopping-sub001/internal/domain/payment"
)

// ConfirmRefundItemRequest 部分退款行
// AmountMinor缺省时按数量比例分摊行小计(HALF_UP)
type ConfirmRefundItemRequest struct {
	SkuID       uint64 `json:"sku_id" binding:"required" example:"101"`
	Quantity    int    `json:"quantity" binding:"required,min=1" example:"1"`
	AmountMinor *int64 `json:"amount_minor" binding:"omitempty,min=1" example:"4999"`
}

// ConfirmRefundRequest HTTP退款审核请求(管理端)
// Full=true为整单退款,忽略Items和ShippingMinor
type ConfirmRefundRequest struct {
	OrderNo       string                     `json:"order_no" binding:"required" example:"20260801123456789"`
	Full          bool                       `json:"full" example:"true"`
	Items         []ConfirmRefundItemRequest `json:"items" binding:"omitempty,dive"`
	ShippingMinor int64                      `json:"shipping_minor" binding:"min=0" example:"0"`
	ReasonCode    string                     `json:"reason_code" binding:"max=50" example:"QUALITY"`
	ReasonText    string                     `json:"reason_text" binding:"max=255" example:"质量问题整单退"`
}

// ToRefundRequest 转换为应用层退款请求
func (r *ConfirmRefundRequest) ToRefundRequest(initiator string) payment.RefundRequest {
	items := make([]payment.RefundItemRequest, len(r.Items))
	for i, it := range r.Items {
		items[i] = payment.RefundItemRequest{
			SkuID:       it.SkuID,
			Quantity:    it.Quantity,
			AmountMinor: it.AmountMinor,
		}
	}
	return payment.RefundRequest{
		Full:          r.Full,
		Items:         items,
		ShippingMinor: r.ShippingMinor,
		ReasonCode:    r.ReasonCode,
		ReasonText:    r.ReasonText,
		Initiator:     initiator,
	}
}

// RefundItemResponse 退款明细行响应
type RefundItemResponse struct {
	SkuID    uint64 `json:"sku_id" example:"101"`
	Quantity int    `json:"quantity" example:"1"`
	Amount   int64  `json:"amount" example:"4999"`
}

// RefundResponse HTTP退款单响应
type RefundResponse struct {
	RefundNo         string               `json:"refund_no" example:"1830457612345678"`
	OrderNo          string               `json:"order_no" example:"20260801123456789"`
	ExternalRefundID string               `json:"external_refund_id,omitempty" example:"5O190127TN364715T"`
	Status           string               `json:"status" example:"SUCCESS"`
	Full             bool                 `json:"full" example:"true"`
	Currency         string               `json:"currency" example:"USD"`
	Amount           int64                `json:"amount" example:"11697"`
	ItemsAmount      int64                `json:"items_amount" example:"10497"`
	ShippingAmount   int64                `json:"shipping_amount" example:"1200"`
	AmountText       string               `json:"amount_text" example:"116.97"`
	Items            []RefundItemResponse `json:"items,omitempty"`
	CreatedAt        string               `json:"created_at" example:"2026-08-01 10:00:00"`
}

// ToRefundResponse 组装退款单响应
func ToRefundResponse(r *payment.PaymentRefund) *RefundResponse {
	items := make([]RefundItemResponse, len(r.Items))
	for i, it := range r.Items {
		items[i] = RefundItemResponse{
			SkuID:    it.SkuID,
			Quantity: it.Quantity,
			Amount:   it.Amount.Amount,
		}
	}
	return &RefundResponse{
		RefundNo:         r.RefundNo,
		OrderNo:          r.OrderNo,
		ExternalRefundID: r.ExternalRefundID,
		Status:           string(r.Status),
		Full:             r.Full,
		Currency:         r.Amount.Currency,
		Amount:           r.Amount.Amount,
		ItemsAmount:      r.ItemsAmount.Amount,
		ShippingAmount:   r.ShippingAmount.Amount,
		AmountText:       FormatAmountText(r.Amount),
		Items:            items,
		CreatedAt:        r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// SyncRefundsResponse 手动对账触发响应
type SyncRefundsResponse struct {
	Synced int `json:"synced" example:"3"`
	Failed int `json:"failed" example:"0"`
}
