package payment

import (
	"time"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
)

// Channel 支付渠道
type Channel string

const (
	ChannelNone   Channel = "NONE" // 占位支付单(下单时创建,未选择渠道)
	ChannelPayPal Channel = "PAYPAL"
)

// Status 支付单状态
type Status string

const (
	StatusNone    Status = "NONE"
	StatusInit    Status = "INIT"
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
	StatusClosed  Status = "CLOSED"
)

// PaymentOrder 支付单
// 教学要点:
// 1. 订单创建时先落一条NONE渠道的占位支付单,拿到ID后回填orders.active_payment_id,
//    保证"订单必有支付单"这条不变式,后续发起支付只是改写这条记录
// 2. ExternalOrderID/CaptureID是渠道侧凭证,退款必须凭CaptureID发起
type PaymentOrder struct {
	ID              uint64
	PaymentNo       string // 业务支付单号
	OrderNo         string
	Channel         Channel
	Status          Status
	Amount          money.Money
	ExternalOrderID string // 渠道订单号(如PayPal Order ID)
	CaptureID       string // 资金捕获凭证(退款依据)
	RequestPayload  string // 渠道请求报文(JSON,排查用)
	ResponsePayload string // 渠道响应报文(JSON)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOpen 支付单是否仍处于可关闭的未完成状态
func (p *PaymentOrder) IsOpen() bool {
	switch p.Status {
	case StatusNone, StatusInit, StatusPending:
		return true
	default:
		return false
	}
}
