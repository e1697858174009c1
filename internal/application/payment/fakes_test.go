package payment

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	"github.com/eason8811/international-shopping-sub001/internal/domain/payment"
	"github.com/eason8811/international-shopping-sub001/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.InitMetrics()
	os.Exit(m.Run())
}

type fakeTxManager struct{}

func (fakeTxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePublisher struct {
	routingKeys []string
}

func (p *fakePublisher) Publish(routingKey string, _ interface{}) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	return nil
}

// fakeOrderRepo 只实现退款编排会触达的方法,其余直接panic暴露误用
type fakeOrderRepo struct {
	orders     map[string]*order.Order
	statusLogs []order.StatusLog
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*order.Order)}
}

func (r *fakeOrderRepo) FindByOrderNo(_ context.Context, orderNo string) (*order.Order, error) {
	o, ok := r.orders[orderNo]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) ConfirmRefundCAS(_ context.Context, orderNo string, now time.Time) (bool, error) {
	o, ok := r.orders[orderNo]
	if !ok || o.Status != order.StatusRefunding {
		return false, nil
	}
	o.Status = order.StatusRefunded
	o.PayStatus = order.PayStatusClosed
	o.UpdatedAt = now
	return true, nil
}

func (r *fakeOrderRepo) AppendStatusLog(_ context.Context, l order.StatusLog) error {
	r.statusLogs = append(r.statusLogs, l)
	return nil
}

func (r *fakeOrderRepo) Create(context.Context, *order.Order) error { panic("not used") }
func (r *fakeOrderRepo) FindByIdempotencyKey(context.Context, uint64, string) (*order.Order, error) {
	panic("not used")
}
func (r *fakeOrderRepo) ListByUserID(context.Context, uint64, int, int) ([]*order.Order, int64, error) {
	panic("not used")
}
func (r *fakeOrderRepo) ListUnpaidBefore(context.Context, time.Time, int) ([]string, error) {
	panic("not used")
}
func (r *fakeOrderRepo) CancelUnpaidCAS(context.Context, string, time.Time) (bool, error) {
	panic("not used")
}
func (r *fakeOrderRepo) RequestRefundCAS(context.Context, string, order.RefundReason, time.Time) (bool, error) {
	panic("not used")
}
func (r *fakeOrderRepo) ChangeAddressCAS(context.Context, string, order.AddressSnapshot, time.Time) (bool, error) {
	panic("not used")
}
func (r *fakeOrderRepo) UpdatePayStatus(context.Context, string, order.PayStatus, time.Time) error {
	panic("not used")
}
func (r *fakeOrderRepo) BindActivePayment(context.Context, string, uint64) error { panic("not used") }
func (r *fakeOrderRepo) ClearCartItems(context.Context, uint64, []uint64) error  { panic("not used") }
func (r *fakeOrderRepo) RecordAppliedDiscounts(context.Context, *order.Order) error {
	panic("not used")
}

type fakePaymentRepo struct {
	payments map[uint64]*payment.PaymentOrder
	refunds  map[string]*payment.PaymentRefund
	nextID   uint64
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		payments: make(map[uint64]*payment.PaymentOrder),
		refunds:  make(map[string]*payment.PaymentRefund),
	}
}

func (r *fakePaymentRepo) CreatePlaceholder(_ context.Context, p *payment.PaymentOrder) error {
	r.nextID++
	p.ID = r.nextID
	r.payments[p.ID] = p
	return nil
}

func (r *fakePaymentRepo) FindPaymentByID(_ context.Context, id uint64) (*payment.PaymentOrder, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return p, nil
}

func (r *fakePaymentRepo) FindSuccessPayment(_ context.Context, orderNo string) (*payment.PaymentOrder, error) {
	for _, p := range r.payments {
		if p.OrderNo == orderNo && p.Status == payment.StatusSuccess {
			return p, nil
		}
	}
	return nil, payment.ErrPaymentNotFound
}

func (r *fakePaymentRepo) UpdateCaptureID(_ context.Context, paymentID uint64, captureID string, _ time.Time) error {
	p, ok := r.payments[paymentID]
	if !ok {
		return payment.ErrPaymentNotFound
	}
	p.CaptureID = captureID
	return nil
}

func (r *fakePaymentRepo) CloseSuccessPaymentCAS(_ context.Context, paymentID uint64, _ time.Time) (bool, error) {
	p, ok := r.payments[paymentID]
	if !ok || p.Status != payment.StatusSuccess {
		return false, nil
	}
	p.Status = payment.StatusClosed
	return true, nil
}

func (r *fakePaymentRepo) CloseOpenPayments(_ context.Context, orderNo string, _ time.Time) error {
	for _, p := range r.payments {
		if p.OrderNo == orderNo && p.IsOpen() {
			p.Status = payment.StatusClosed
		}
	}
	return nil
}

func (r *fakePaymentRepo) CreateRefund(_ context.Context, rf *payment.PaymentRefund) error {
	r.nextID++
	rf.ID = r.nextID
	r.refunds[rf.RefundNo] = rf
	return nil
}

func (r *fakePaymentRepo) FindRefundByNo(_ context.Context, refundNo string) (*payment.PaymentRefund, error) {
	rf, ok := r.refunds[refundNo]
	if !ok {
		return nil, payment.ErrRefundNotFound
	}
	return rf, nil
}

func (r *fakePaymentRepo) FindOpenRefund(_ context.Context, orderNo string) (*payment.PaymentRefund, error) {
	for _, rf := range r.refunds {
		if rf.OrderNo == orderNo && (rf.Status == payment.RefundInit || rf.Status == payment.RefundPending) {
			return rf, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) UpdateRefundResult(_ context.Context, refundNo, externalRefundID string,
	status payment.RefundStatus, reqPayload, respPayload string, now time.Time) error {
	rf, ok := r.refunds[refundNo]
	if !ok {
		return payment.ErrRefundNotFound
	}
	rf.ExternalRefundID = externalRefundID
	rf.Status = status
	rf.RequestPayload = reqPayload
	rf.ResponsePayload = respPayload
	rf.UpdatedAt = now
	return nil
}

func (r *fakePaymentRepo) UpdateRefundStatusCAS(_ context.Context, refundNo string,
	to payment.RefundStatus, polledAt time.Time) (bool, error) {
	rf, ok := r.refunds[refundNo]
	if !ok {
		return false, nil
	}
	if rf.Status != payment.RefundInit && rf.Status != payment.RefundPending {
		return false, nil
	}
	rf.Status = to
	rf.LastPolledAt = &polledAt
	rf.UpdatedAt = polledAt
	return true, nil
}

func (r *fakePaymentRepo) ListRefundsToSync(_ context.Context, limit int) ([]*payment.PaymentRefund, error) {
	var out []*payment.PaymentRefund
	for _, rf := range r.refunds {
		if len(out) >= limit {
			break
		}
		switch rf.Status {
		case payment.RefundInit, payment.RefundPending, payment.RefundSuccess:
			out = append(out, rf)
		}
	}
	return out, nil
}

type ledgerCall struct {
	orderNo string
	change  order.ChangeType
	items   []order.SkuQuantity
}

type fakeLedger struct {
	calls []ledgerCall
}

func (l *fakeLedger) Apply(_ context.Context, orderNo string, change order.ChangeType, items []order.SkuQuantity, _ string) error {
	l.calls = append(l.calls, ledgerCall{orderNo, change, items})
	return nil
}

// fakeGateway 可编排返回的假渠道
type fakeGateway struct {
	refundResult *payment.RefundCaptureResult
	refundErr    error
	refundCalls  []payment.RefundCaptureCommand

	orderResult *payment.GetOrderResult
	orderErr    error

	pollResult *payment.GetRefundResult
	pollErr    error
	pollCalls  int
}

func (g *fakeGateway) RefundCapture(_ context.Context, cmd payment.RefundCaptureCommand) (*payment.RefundCaptureResult, error) {
	g.refundCalls = append(g.refundCalls, cmd)
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return g.refundResult, nil
}

func (g *fakeGateway) GetOrder(_ context.Context, _ string) (*payment.GetOrderResult, error) {
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	return g.orderResult, nil
}

func (g *fakeGateway) GetRefund(_ context.Context, _ string) (*payment.GetRefundResult, error) {
	g.pollCalls++
	if g.pollErr != nil {
		return nil, g.pollErr
	}
	return g.pollResult, nil
}

func usd(minor int64) money.Money {
	return money.Money{Amount: minor, Currency: "USD"}
}
