package dto

import (
	"fmt"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
)

// AddressDTO 收货地址(创建与改址共用)
type AddressDTO struct {
	Receiver   string `json:"receiver" binding:"required,max=100" example:"张三"`
	Phone      string `json:"phone" binding:"max=30" example:"+1-202-555-0101"`
	Country    string `json:"country" binding:"max=50" example:"US"`
	Province   string `json:"province" binding:"max=50" example:"CA"`
	City       string `json:"city" binding:"max=50" example:"San Francisco"`
	Detail     string `json:"detail" binding:"required,max=255" example:"123 Market St"`
	PostalCode string `json:"postal_code" binding:"max=20" example:"94103"`
}

// ToSnapshot 转换为领域层地址快照
func (a *AddressDTO) ToSnapshot() order.AddressSnapshot {
	return order.AddressSnapshot{
		Receiver:   a.Receiver,
		Phone:      a.Phone,
		Country:    a.Country,
		Province:   a.Province,
		City:       a.City,
		Detail:     a.Detail,
		PostalCode: a.PostalCode,
	}
}

// CreateOrderItemRequest 下单明细行
type CreateOrderItemRequest struct {
	SkuID          uint64 `json:"sku_id" binding:"required" example:"101"`
	Quantity       int    `json:"quantity" binding:"required,min=1,max=999" example:"2"`
	DiscountCodeID uint64 `json:"discount_code_id" binding:"omitempty" example:"0"` // 0表示未用券
}

// CreateOrderRequest HTTP下单请求
// 幂等键优先取Header(Idempotency-Key),缺省时落到body字段
type CreateOrderRequest struct {
	IdempotencyKey string                   `json:"idempotency_key" binding:"omitempty,max=64" example:"cart-7f3a"`
	Currency       string                   `json:"currency" binding:"required,len=3" example:"USD"`
	Items          []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	DiscountMinor  int64                    `json:"discount_minor" binding:"min=0" example:"500"`
	ShippingMinor  int64                    `json:"shipping_minor" binding:"min=0" example:"1200"`
	TaxMinor       int64                    `json:"tax_minor" binding:"min=0" example:"0"`
	Address        *AddressDTO              `json:"address" binding:"omitempty"`
}

// OrderItemResponse 订单明细响应
type OrderItemResponse struct {
	SkuID         uint64 `json:"sku_id" example:"101"`
	ProductID     uint64 `json:"product_id" example:"1"`
	Title         string `json:"title" example:"蓝牙耳机"`
	SkuAttrs      string `json:"sku_attrs" example:"颜色:黑"`
	CoverImageURL string `json:"cover_image_url" example:"https://example.com/sku.jpg"`
	UnitPrice     int64  `json:"unit_price" example:"4999"` // 最小货币单位
	Quantity      int    `json:"quantity" example:"2"`
	Subtotal      int64  `json:"subtotal" example:"9998"`
}

// OrderResponse HTTP订单响应
type OrderResponse struct {
	OrderNo        string              `json:"order_no" example:"20260801123456789"`
	Status         string              `json:"status" example:"CREATED"`
	PayStatus      string              `json:"pay_status" example:"NONE"`
	Currency       string              `json:"currency" example:"USD"`
	TotalAmount    int64               `json:"total_amount" example:"10997"`
	DiscountAmount int64               `json:"discount_amount" example:"500"`
	ShippingAmount int64               `json:"shipping_amount" example:"1200"`
	TaxAmount      int64               `json:"tax_amount" example:"0"`
	PayAmount      int64               `json:"pay_amount" example:"11697"`
	PayAmountText  string              `json:"pay_amount_text" example:"116.97"` // 主币种单位,方便前端显示
	Items          []OrderItemResponse `json:"items"`
	Address        *AddressDTO         `json:"address,omitempty"`
	AddressChanged bool                `json:"address_changed" example:"false"`
	CreatedAt      string              `json:"created_at" example:"2026-08-01 10:00:00"`
}

// ToOrderResponse 组装订单响应
func ToOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			SkuID:         it.SkuID,
			ProductID:     it.ProductID,
			Title:         it.Title,
			SkuAttrs:      it.SkuAttrs,
			CoverImageURL: it.CoverImageURL,
			UnitPrice:     it.UnitPrice.Amount,
			Quantity:      it.Quantity,
			Subtotal:      it.Subtotal.Amount,
		}
	}

	var addr *AddressDTO
	if o.Address != nil {
		addr = &AddressDTO{
			Receiver:   o.Address.Receiver,
			Phone:      o.Address.Phone,
			Country:    o.Address.Country,
			Province:   o.Address.Province,
			City:       o.Address.City,
			Detail:     o.Address.Detail,
			PostalCode: o.Address.PostalCode,
		}
	}

	return &OrderResponse{
		OrderNo:        o.OrderNo,
		Status:         string(o.Status),
		PayStatus:      string(o.PayStatus),
		Currency:       o.Currency,
		TotalAmount:    o.TotalAmount.Amount,
		DiscountAmount: o.DiscountAmount.Amount,
		ShippingAmount: o.ShippingAmount.Amount,
		TaxAmount:      o.TaxAmount.Amount,
		PayAmount:      o.PayAmount.Amount,
		PayAmountText:  FormatAmountText(o.PayAmount),
		Items:          items,
		Address:        addr,
		AddressChanged: o.AddressChanged,
		CreatedAt:      o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// OrderListItem 订单列表项(不带明细,减少数据传输量)
type OrderListItem struct {
	OrderNo       string `json:"order_no" example:"20260801123456789"`
	Status        string `json:"status" example:"PAID"`
	PayStatus     string `json:"pay_status" example:"SUCCESS"`
	Currency      string `json:"currency" example:"USD"`
	PayAmount     int64  `json:"pay_amount" example:"11697"`
	PayAmountText string `json:"pay_amount_text" example:"116.97"`
	ItemCount     int    `json:"item_count" example:"3"`
	CreatedAt     string `json:"created_at" example:"2026-08-01 10:00:00"`
}

// ListOrdersRequest HTTP订单列表请求
type ListOrdersRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

// ListOrdersResponse HTTP订单列表响应
type ListOrdersResponse struct {
	List  []OrderListItem `json:"list"`
	Total int64           `json:"total" example:"42"`
	Page  int             `json:"page" example:"1"`
	Size  int             `json:"size" example:"20"`
}

// ToOrderListItem 组装订单列表项
func ToOrderListItem(o *order.Order) OrderListItem {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return OrderListItem{
		OrderNo:       o.OrderNo,
		Status:        string(o.Status),
		PayStatus:     string(o.PayStatus),
		Currency:      o.Currency,
		PayAmount:     o.PayAmount.Amount,
		PayAmountText: FormatAmountText(o.PayAmount),
		ItemCount:     count,
		CreatedAt:     o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// RequestRefundRequest HTTP退款申请请求
type RequestRefundRequest struct {
	ReasonCode string `json:"reason_code" binding:"required,max=50" example:"QUALITY"`
	ReasonText string `json:"reason_text" binding:"max=255" example:"商品有划痕"`
}

// ChangeAddressRequest HTTP改址请求(只允许改一次)
type ChangeAddressRequest struct {
	Address AddressDTO `json:"address" binding:"required"`
}

// FormatAmountText 格式化金额(最小货币单位→主单位)
// 例如:USD 11697 → "116.97"
func FormatAmountText(m money.Money) string {
	return fmt.Sprintf("%.2f", float64(m.Amount)/100.0)
}
