package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/eason8811/international-shopping-sub001/internal/application/order"
	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	"github.com/eason8811/international-shopping-sub001/internal/interface/http/dto"
	"github.com/eason8811/international-shopping-sub001/internal/interface/http/middleware"
	"github.com/eason8811/international-shopping-sub001/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	createOrder   *apporder.CreateOrderUseCase
	cancelOrder   *apporder.CancelOrderUseCase
	requestRefund *apporder.RequestRefundUseCase
	changeAddress *apporder.ChangeAddressUseCase
	queryOrders   *apporder.QueryOrdersUseCase
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	createOrder *apporder.CreateOrderUseCase,
	cancelOrder *apporder.CancelOrderUseCase,
	requestRefund *apporder.RequestRefundUseCase,
	changeAddress *apporder.ChangeAddressUseCase,
	queryOrders *apporder.QueryOrdersUseCase,
) *OrderHandler {
	return &OrderHandler{
		createOrder:   createOrder,
		cancelOrder:   cancelOrder,
		requestRefund: requestRefund,
		changeAddress: changeAddress,
		queryOrders:   queryOrders,
	}
}

// CreateOrder 创建订单
//
// 教学说明:防超卖 + 创建幂等
// 1. 库存扣减走条件UPDATE原子扣减,零行命中即库存不足,由数据库保证原子性
// 2. 幂等键优先取Idempotency-Key请求头,重复请求返回第一次创建的订单
//
// 测试方法:
// 1. 创建库存为10的SKU
// 2. 启动10个并发请求,每个购买5件
// 3. 预期结果:只有2个请求成功,其他8个返回库存不足
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = req.IdempotencyKey
	}

	userID := middleware.MustGetUserID(c)

	items := make([]apporder.CreateOrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = apporder.CreateOrderItem{
			SkuID:          item.SkuID,
			Quantity:       item.Quantity,
			DiscountCodeID: item.DiscountCodeID,
		}
	}

	var addr *order.AddressSnapshot
	if req.Address != nil {
		snapshot := req.Address.ToSnapshot()
		addr = &snapshot
	}

	result, err := h.createOrder.Execute(c.Request.Context(), apporder.CreateOrderRequest{
		UserID:         userID,
		IdempotencyKey: idempotencyKey,
		Currency:       req.Currency,
		Items:          items,
		DiscountMinor:  req.DiscountMinor,
		ShippingMinor:  req.ShippingMinor,
		TaxMinor:       req.TaxMinor,
		Address:        addr,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(result))
}

// CancelOrder 用户取消未支付订单
// 已取消的订单重复取消是幂等成功;已支付订单返回状态冲突
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderNo := c.Param("orderNo")
	userID := middleware.MustGetUserID(c)

	if err := h.cancelOrder.CancelByUser(c.Request.Context(), userID, orderNo); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// RequestRefund 申请退款(PAID/FULFILLED订单)
// 只做状态流转,实际打款由管理端审核触发
func (h *OrderHandler) RequestRefund(c *gin.Context) {
	var req dto.RequestRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	err := h.requestRefund.Execute(c.Request.Context(), apporder.RequestRefundRequest{
		UserID:     middleware.MustGetUserID(c),
		OrderNo:    c.Param("orderNo"),
		ReasonCode: req.ReasonCode,
		ReasonText: req.ReasonText,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// ChangeAddress 修改收货地址(一次性)
// Redis标记挡重复请求,DB的address_changed CAS做最终裁决
func (h *OrderHandler) ChangeAddress(c *gin.Context) {
	var req dto.ChangeAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	err := h.changeAddress.Execute(c.Request.Context(), apporder.ChangeAddressRequest{
		UserID:  middleware.MustGetUserID(c),
		OrderNo: c.Param("orderNo"),
		Address: req.Address.ToSnapshot(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// GetOrder 查询订单详情(仅本人)
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	o, err := h.queryOrders.GetByUser(c.Request.Context(), userID, c.Param("orderNo"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToOrderResponse(o))
}

// ListOrders 分页查询我的订单
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	userID := middleware.MustGetUserID(c)
	orders, total, err := h.queryOrders.ListByUser(c.Request.Context(), userID, req.Page, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]dto.OrderListItem, len(orders))
	for i, o := range orders {
		list[i] = dto.ToOrderListItem(o)
	}

	response.Success(c, &dto.ListOrdersResponse{
		List:  list,
		Total: total,
		Page:  req.Page,
		Size:  req.PageSize,
	})
}
