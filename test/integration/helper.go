package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// 教学说明：测试辅助工具
// 这个文件包含集成测试的通用辅助函数，遵循DRY原则（Don't Repeat Yourself）
// 将重复的代码（HTTP请求、JSON解析）封装成可复用的函数
//
// 运行前提：
// 1. 服务已启动（make run 或 go run ./cmd/api）
// 2. 数据库已预置测试SKU（见下方TestSkuA/TestSkuB）
// 服务未启动时测试自动跳过，不会误报失败

const (
	// BaseURL API基础URL
	BaseURL = "http://localhost:8080/api/v1"
	// PingURL 健康检查URL
	PingURL = "http://localhost:8080/ping"
	// Timeout HTTP请求超时时间
	Timeout = 10 * time.Second

	// TestSkuA / TestSkuB 预置测试SKU
	// 集成测试假设数据库里已有这两个SKU且库存充足（单价分别为4999/999）
	TestSkuA uint64 = 101
	TestSkuB uint64 = 102
)

// Response 统一响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// RegisterData 注册响应数据
type RegisterData struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// LoginData 登录响应数据
type LoginData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// OrderData 订单响应数据
type OrderData struct {
	OrderNo        string `json:"order_no"`
	Status         string `json:"status"`
	PayStatus      string `json:"pay_status"`
	Currency       string `json:"currency"`
	TotalAmount    int64  `json:"total_amount"`
	PayAmount      int64  `json:"pay_amount"`
	PayAmountText  string `json:"pay_amount_text"`
	AddressChanged bool   `json:"address_changed"`
}

// OrderListData 订单列表响应数据
type OrderListData struct {
	List  []OrderData `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

// RequireServer 检查集成测试服务是否在运行，不在则跳过
//
// 教学说明：
// 集成测试依赖外部进程（API服务+MySQL+Redis），在CI没有起环境时
// 让测试跳过而不是失败，避免污染单元测试的结果
func RequireServer(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(PingURL)
	if err != nil {
		t.Skipf("集成测试服务未启动，跳过: %v", err)
	}
	resp.Body.Close()
}

// PostJSON 发送POST请求并解析JSON响应
//
// 教学说明：
// - 使用*testing.T参数，可以在失败时立即终止测试
// - 使用require包进行断言，失败会立即停止（不继续执行）
// - 返回*Response而非error，简化调用方代码
func PostJSON(t *testing.T, url string, data interface{}, token string) *Response {
	return PostJSONWithHeaders(t, url, data, token, nil)
}

// PostJSONWithHeaders 发送POST请求（支持自定义Header，如Idempotency-Key）
func PostJSONWithHeaders(t *testing.T, url string, data interface{}, token string, headers map[string]string) *Response {
	jsonData, err := json.Marshal(data)
	require.NoError(t, err, "JSON序列化失败")

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	require.NoError(t, err, "创建HTTP请求失败")

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: Timeout}
	resp, err := client.Do(req)
	require.NoError(t, err, "发送HTTP请求失败")
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "读取响应体失败")

	var result Response
	err = json.Unmarshal(body, &result)
	require.NoError(t, err, "解析JSON响应失败: %s", string(body))

	return &result
}

// GetJSON 发送GET请求并解析JSON响应
func GetJSON(t *testing.T, url string, token string) *Response {
	req, err := http.NewRequest("GET", url, nil)
	require.NoError(t, err, "创建HTTP请求失败")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: Timeout}
	resp, err := client.Do(req)
	require.NoError(t, err, "发送HTTP请求失败")
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "读取响应体失败")

	var result Response
	err = json.Unmarshal(body, &result)
	require.NoError(t, err, "解析JSON响应失败: %s", string(body))

	return &result
}

// GenerateTestEmail 生成唯一的测试邮箱
//
// 教学说明：
// 使用时间戳确保邮箱唯一性，避免测试重复运行时邮箱冲突
// 确保邮箱格式正确（包含@和域名）
func GenerateTestEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@test.com", prefix, time.Now().UnixNano())
}

// RegisterTestUser 注册测试用户并返回Token
//
// 教学说明：
// 这是一个"高阶"辅助函数，封装了注册+登录的完整流程
// 简化了测试代码，让测试更关注业务逻辑而非基础设施
func RegisterTestUser(t *testing.T, nickname string) (email string, token string) {
	// 1. 注册
	email = GenerateTestEmail(nickname)
	registerReq := map[string]string{
		"email":    email,
		"password": "Test1234",
		"nickname": nickname,
	}

	registerResp := PostJSON(t, BaseURL+"/users/register", registerReq, "")
	require.Equal(t, 0, registerResp.Code, "注册失败: %s", registerResp.Message)

	// 2. 登录
	loginReq := map[string]string{
		"email":    email,
		"password": "Test1234",
	}

	loginResp := PostJSON(t, BaseURL+"/users/login", loginReq, "")
	require.Equal(t, 0, loginResp.Code, "登录失败: %s", loginResp.Message)

	var loginData LoginData
	err := json.Unmarshal(loginResp.Data, &loginData)
	require.NoError(t, err, "解析登录响应失败")

	return email, loginData.AccessToken
}

// CreateTestOrder 创建一笔测试订单并返回订单号
//
// 教学说明：
// 封装下单流程：买2件TestSkuA，附运费和收货地址
// 返回orderNo供取消、改址等后续测试使用
func CreateTestOrder(t *testing.T, token string) string {
	orderReq := map[string]interface{}{
		"currency": "USD",
		"items": []map[string]interface{}{
			{"sku_id": TestSkuA, "quantity": 2},
		},
		"shipping_minor": 1200,
		"address": map[string]string{
			"receiver": "集成测试收件人",
			"detail":   "123 Market St",
			"country":  "US",
			"city":     "San Francisco",
		},
	}

	resp := PostJSON(t, BaseURL+"/orders", orderReq, token)
	require.Equal(t, 0, resp.Code, "下单失败: %s", resp.Message)

	var data OrderData
	err := json.Unmarshal(resp.Data, &data)
	require.NoError(t, err, "解析订单响应失败")
	require.NotEmpty(t, data.OrderNo, "订单号不应为空")

	return data.OrderNo
}
