package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apppayment "github.com/eason8811/international-shopping-sub001/internal/application/payment"
	"github.com/eason8811/international-shopping-sub001/internal/interface/http/dto"
	"github.com/eason8811/international-shopping-sub001/pkg/response"
)

// RefundHandler 退款HTTP处理器(管理端)
type RefundHandler struct {
	confirmRefund *apppayment.ConfirmRefundUseCase
	syncRefunds   *apppayment.SyncRefundsUseCase
}

// NewRefundHandler 创建退款处理器
func NewRefundHandler(confirmRefund *apppayment.ConfirmRefundUseCase,
	syncRefunds *apppayment.SyncRefundsUseCase) *RefundHandler {
	return &RefundHandler{
		confirmRefund: confirmRefund,
		syncRefunds:   syncRefunds,
	}
}

// ConfirmRefund 审核通过并发起退款
//
// 教学说明:退款编排的关键约束
// 1. 订单必须已走过refund-request(REFUNDING状态)
// 2. 先落INIT退款单再调渠道,渠道失败时INIT留在库里等对账接管
// 3. 渠道幂等键(ppref-前缀)保证同一退款单重发不会退两次
func (h *RefundHandler) ConfirmRefund(c *gin.Context) {
	var req dto.ConfirmRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}
	if !req.Full && len(req.Items) == 0 {
		response.ErrorWithCode(c, 40900, "部分退款必须指定退款明细")
		return
	}

	refund, err := h.confirmRefund.Execute(c.Request.Context(), req.OrderNo,
		req.ToRefundRequest("ADMIN"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToRefundResponse(refund))
}

// SyncRefunds 手动触发一轮退款对账
// 定时任务之外的兜底入口,limit通过query传入(缺省50)
func (h *RefundHandler) SyncRefunds(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.ErrorWithCode(c, 40900, "limit必须是整数")
			return
		}
		limit = parsed
	}

	synced, failed, err := h.syncRefunds.Execute(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.SyncRefundsResponse{
		Synced: synced,
		Failed: failed,
	})
}
