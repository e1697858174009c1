package integration

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 教学说明：订单模块集成测试
//
// 订单模块是本项目的核心，包含以下关键技术点：
// 1. 数据库事务（Transaction）
// 2. 库存台账幂等扣减（条件UPDATE + 操作日志唯一键）
// 3. 幂等键防重复下单
// 4. 订单状态机
//
// 这个测试文件验证了这些核心功能的正确性

// TestOrderCreate 测试订单创建功能
func TestOrderCreate(t *testing.T) {
	RequireServer(t)

	_, token := RegisterTestUser(t, "order_creator")

	t.Run("正常创建订单", func(t *testing.T) {
		orderReq := map[string]interface{}{
			"currency": "USD",
			"items": []map[string]interface{}{
				{"sku_id": TestSkuA, "quantity": 2},
				{"sku_id": TestSkuB, "quantity": 1},
			},
			"shipping_minor": 1200,
		}

		resp := PostJSON(t, BaseURL+"/orders", orderReq, token)
		assert.Equal(t, 0, resp.Code, "创建订单应该成功: %s", resp.Message)

		var data OrderData
		err := json.Unmarshal(resp.Data, &data)
		require.NoError(t, err, "解析响应数据失败")

		assert.NotEmpty(t, data.OrderNo, "订单号不应该为空")
		assert.Equal(t, "CREATED", data.Status, "新订单状态应该是CREATED")
		assert.Equal(t, "USD", data.Currency)
		// 2*4999 + 1*999 = 10997，加运费1200 = 12197
		assert.Equal(t, int64(10997), data.TotalAmount, "商品总额")
		assert.Equal(t, int64(12197), data.PayAmount, "应付金额=商品总额+运费")
		assert.Equal(t, "121.97", data.PayAmountText, "应付金额(主币种)")

		t.Logf("✓ 订单创建成功，订单号: %s，应付: %s", data.OrderNo, data.PayAmountText)
	})

	t.Run("幂等键重复下单返回同一订单", func(t *testing.T) {
		orderReq := map[string]interface{}{
			"currency": "USD",
			"items": []map[string]interface{}{
				{"sku_id": TestSkuA, "quantity": 1},
			},
		}
		headers := map[string]string{
			"Idempotency-Key": fmt.Sprintf("it-idem-%s", GenerateTestEmail("k")),
		}

		resp1 := PostJSONWithHeaders(t, BaseURL+"/orders", orderReq, token, headers)
		require.Equal(t, 0, resp1.Code, "第一次下单应该成功: %s", resp1.Message)
		var data1 OrderData
		require.NoError(t, json.Unmarshal(resp1.Data, &data1))

		// 同一幂等键重放，应返回同一笔订单而不是新建
		resp2 := PostJSONWithHeaders(t, BaseURL+"/orders", orderReq, token, headers)
		require.Equal(t, 0, resp2.Code, "重放应该成功: %s", resp2.Message)
		var data2 OrderData
		require.NoError(t, json.Unmarshal(resp2.Data, &data2))

		assert.Equal(t, data1.OrderNo, data2.OrderNo, "幂等重放应该返回同一订单号")

		t.Logf("✓ 幂等键重放返回同一订单: %s", data1.OrderNo)
	})

	t.Run("未登录不能下单", func(t *testing.T) {
		orderReq := map[string]interface{}{
			"currency": "USD",
			"items": []map[string]interface{}{
				{"sku_id": TestSkuA, "quantity": 1},
			},
		}

		resp := PostJSON(t, BaseURL+"/orders", orderReq, "")
		assert.NotEqual(t, 0, resp.Code, "未登录应该失败")

		t.Logf("✓ 未登录正确被拒绝: %s", resp.Message)
	})

	t.Run("SKU不存在应失败", func(t *testing.T) {
		orderReq := map[string]interface{}{
			"currency": "USD",
			"items": []map[string]interface{}{
				{"sku_id": 99999999, "quantity": 1},
			},
		}

		resp := PostJSON(t, BaseURL+"/orders", orderReq, token)
		assert.NotEqual(t, 0, resp.Code, "SKU不存在应该失败")

		t.Logf("✓ SKU不存在正确返回错误: %s", resp.Message)
	})

	t.Run("数量为0应失败", func(t *testing.T) {
		orderReq := map[string]interface{}{
			"currency": "USD",
			"items": []map[string]interface{}{
				{"sku_id": TestSkuA, "quantity": 0},
			},
		}

		resp := PostJSON(t, BaseURL+"/orders", orderReq, token)
		assert.NotEqual(t, 0, resp.Code, "数量为0应该被参数校验拦下")

		t.Logf("✓ 非法数量正确返回错误: %s", resp.Message)
	})
}

// TestOrderConcurrentIdempotency 并发下单幂等性
//
// 教学说明：
// 同一幂等键并发打到服务上，数据库唯一键保证只会建一笔订单，
// 其余请求命中已有订单返回
func TestOrderConcurrentIdempotency(t *testing.T) {
	RequireServer(t)

	_, token := RegisterTestUser(t, "concurrent_buyer")

	orderReq := map[string]interface{}{
		"currency": "USD",
		"items": []map[string]interface{}{
			{"sku_id": TestSkuA, "quantity": 1},
		},
	}
	headers := map[string]string{
		"Idempotency-Key": fmt.Sprintf("it-conc-%s", GenerateTestEmail("k")),
	}

	const workers = 5
	var wg sync.WaitGroup
	orderNos := make([]string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp := PostJSONWithHeaders(t, BaseURL+"/orders", orderReq, token, headers)
			if resp.Code == 0 {
				var data OrderData
				if err := json.Unmarshal(resp.Data, &data); err == nil {
					orderNos[idx] = data.OrderNo
				}
			}
		}(i)
	}
	wg.Wait()

	// 所有成功请求返回的订单号必须一致
	var first string
	for _, no := range orderNos {
		if no == "" {
			continue
		}
		if first == "" {
			first = no
			continue
		}
		assert.Equal(t, first, no, "并发幂等下单应该只产生一笔订单")
	}
	require.NotEmpty(t, first, "至少应有一次下单成功")

	t.Logf("✓ %d个并发请求收敛到同一订单: %s", workers, first)
}

// TestOrderLifecycle 订单查询与取消
func TestOrderLifecycle(t *testing.T) {
	RequireServer(t)

	_, token := RegisterTestUser(t, "lifecycle_user")
	orderNo := CreateTestOrder(t, token)

	t.Run("查询订单详情", func(t *testing.T) {
		resp := GetJSON(t, BaseURL+"/orders/"+orderNo, token)
		require.Equal(t, 0, resp.Code, "查询订单应该成功: %s", resp.Message)

		var data OrderData
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, orderNo, data.OrderNo)
		assert.Equal(t, "CREATED", data.Status)

		t.Logf("✓ 订单详情查询成功: %s", data.OrderNo)
	})

	t.Run("他人订单不可见", func(t *testing.T) {
		_, otherToken := RegisterTestUser(t, "other_user")
		resp := GetJSON(t, BaseURL+"/orders/"+orderNo, otherToken)
		assert.NotEqual(t, 0, resp.Code, "访问他人订单应该被拒绝")

		t.Logf("✓ 越权访问正确被拒绝: %s", resp.Message)
	})

	t.Run("订单列表包含该订单", func(t *testing.T) {
		resp := GetJSON(t, BaseURL+"/orders?page=1&page_size=20", token)
		require.Equal(t, 0, resp.Code, "查询列表应该成功: %s", resp.Message)

		var data OrderListData
		require.NoError(t, json.Unmarshal(resp.Data, &data))

		found := false
		for _, it := range data.List {
			if it.OrderNo == orderNo {
				found = true
			}
		}
		assert.True(t, found, "列表中应该包含刚创建的订单")

		t.Logf("✓ 订单列表查询成功，共%d笔", data.Total)
	})

	t.Run("取消订单并回补库存", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/orders/"+orderNo+"/cancel", nil, token)
		assert.Equal(t, 0, resp.Code, "取消订单应该成功: %s", resp.Message)

		// 再查一次确认状态
		detail := GetJSON(t, BaseURL+"/orders/"+orderNo, token)
		require.Equal(t, 0, detail.Code)
		var data OrderData
		require.NoError(t, json.Unmarshal(detail.Data, &data))
		assert.Equal(t, "CANCELLED", data.Status, "取消后状态应该是CANCELLED")

		t.Logf("✓ 订单取消成功")
	})

	t.Run("重复取消应冲突", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/orders/"+orderNo+"/cancel", nil, token)
		assert.NotEqual(t, 0, resp.Code, "已取消的订单再取消应该失败")

		t.Logf("✓ 重复取消正确返回冲突: %s", resp.Message)
	})
}

// TestOrderChangeAddress 一次性改址
func TestOrderChangeAddress(t *testing.T) {
	RequireServer(t)

	_, token := RegisterTestUser(t, "address_user")
	orderNo := CreateTestOrder(t, token)

	newAddr := map[string]interface{}{
		"address": map[string]string{
			"receiver": "新收件人",
			"detail":   "456 Mission St",
			"country":  "US",
			"city":     "San Francisco",
		},
	}

	t.Run("首次改址成功", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/orders/"+orderNo+"/address", newAddr, token)
		assert.Equal(t, 0, resp.Code, "首次改址应该成功: %s", resp.Message)

		detail := GetJSON(t, BaseURL+"/orders/"+orderNo, token)
		require.Equal(t, 0, detail.Code)
		var data OrderData
		require.NoError(t, json.Unmarshal(detail.Data, &data))
		assert.True(t, data.AddressChanged, "改址标记应该置位")

		t.Logf("✓ 首次改址成功")
	})

	t.Run("二次改址被拒绝", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/orders/"+orderNo+"/address", newAddr, token)
		assert.NotEqual(t, 0, resp.Code, "每笔订单只允许改一次地址")

		t.Logf("✓ 二次改址正确被拒绝: %s", resp.Message)
	})
}

// TestRefundRequestRequiresPaid 未支付订单不能申请退款
//
// 教学说明：
// 退款申请只对已支付订单开放，CREATED状态直接走取消流程
func TestRefundRequestRequiresPaid(t *testing.T) {
	RequireServer(t)

	_, token := RegisterTestUser(t, "refund_user")
	orderNo := CreateTestOrder(t, token)

	refundReq := map[string]interface{}{
		"reason_code": "NOT_WANTED",
		"reason_text": "集成测试",
	}

	resp := PostJSON(t, BaseURL+"/orders/"+orderNo+"/refund-request", refundReq, token)
	assert.NotEqual(t, 0, resp.Code, "未支付订单申请退款应该冲突")

	t.Logf("✓ 未支付订单退款申请正确被拒绝: %s", resp.Message)
}

// TestAdminEndpointsForbidden 普通用户访问管理端被拒绝
func TestAdminEndpointsForbidden(t *testing.T) {
	RequireServer(t)

	_, token := RegisterTestUser(t, "plain_user")

	resp := PostJSON(t, BaseURL+"/admin/refunds/sync?limit=10", nil, token)
	assert.NotEqual(t, 0, resp.Code, "普通用户访问管理端应该被拒绝")

	t.Logf("✓ 管理端权限校验生效: %s", resp.Message)
}
