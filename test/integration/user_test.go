package integration

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 教学说明：用户模块集成测试
//
// 集成测试 vs 单元测试：
// - 单元测试：Mock外部依赖（数据库、Redis），测试单个函数的逻辑
// - 集成测试：使用真实的数据库和Redis，测试完整的API流程
//
// 集成测试的价值：
// 1. 验证各组件协同工作（Handler → UseCase → Service → Repository → Database）
// 2. 发现配置错误（如数据库连接、Wire依赖注入）
// 3. 验证业务流程的完整性
//
// 运行方式：
//   make test-integration   # 需要先启动Docker环境
//   go test -v ./test/integration/...

// TestUserRegister 测试用户注册功能
//
// 测试场景：
// 1. 正常注册
// 2. 重复邮箱注册（应失败）
// 3. 密码格式校验
// 4. 邮箱格式校验
func TestUserRegister(t *testing.T) {
	RequireServer(t)

	t.Run("正常注册", func(t *testing.T) {
		email := GenerateTestEmail("normal_user")
		registerReq := map[string]string{
			"email":    email,
			"password": "Test1234",
			"nickname": "测试用户",
		}

		resp := PostJSON(t, BaseURL+"/users/register", registerReq, "")

		assert.Equal(t, 0, resp.Code, "注册应该成功")

		var data RegisterData
		err := json.Unmarshal(resp.Data, &data)
		require.NoError(t, err, "解析响应数据失败")

		assert.NotZero(t, data.ID, "用户ID应该大于0")
		assert.Equal(t, email, data.Email, "返回的邮箱应该与请求一致")
		assert.Equal(t, "测试用户", data.Nickname, "返回的昵称应该与请求一致")

		t.Logf("✓ 注册成功，用户ID: %d", data.ID)
	})

	t.Run("重复邮箱注册应失败", func(t *testing.T) {
		email := GenerateTestEmail("duplicate_user")
		registerReq := map[string]string{
			"email":    email,
			"password": "Test1234",
			"nickname": "测试用户1",
		}

		resp1 := PostJSON(t, BaseURL+"/users/register", registerReq, "")
		require.Equal(t, 0, resp1.Code, "第一次注册应该成功")

		registerReq["nickname"] = "测试用户2"
		resp2 := PostJSON(t, BaseURL+"/users/register", registerReq, "")

		assert.NotEqual(t, 0, resp2.Code, "重复邮箱注册应该失败")

		t.Logf("✓ 重复邮箱注册正确返回错误: %s", resp2.Message)
	})

	t.Run("纯数字密码应失败", func(t *testing.T) {
		email := GenerateTestEmail("weak_pwd")
		registerReq := map[string]string{
			"email":    email,
			"password": "12345678", // 无字母，强度不足
			"nickname": "测试用户",
		}

		resp := PostJSON(t, BaseURL+"/users/register", registerReq, "")

		assert.NotEqual(t, 0, resp.Code, "弱密码应该失败")

		t.Logf("✓ 弱密码正确返回错误: %s", resp.Message)
	})

	t.Run("密码过短应失败", func(t *testing.T) {
		email := GenerateTestEmail("short_pwd")
		registerReq := map[string]string{
			"email":    email,
			"password": "Ab1", // 不满足min=8
			"nickname": "测试用户",
		}

		resp := PostJSON(t, BaseURL+"/users/register", registerReq, "")

		assert.NotEqual(t, 0, resp.Code, "密码过短应该失败")

		t.Logf("✓ 密码过短正确返回错误: %s", resp.Message)
	})

	t.Run("邮箱格式错误应失败", func(t *testing.T) {
		registerReq := map[string]string{
			"email":    "invalid-email",
			"password": "Test1234",
			"nickname": "测试用户",
		}

		resp := PostJSON(t, BaseURL+"/users/register", registerReq, "")

		assert.NotEqual(t, 0, resp.Code, "邮箱格式错误应该失败")

		t.Logf("✓ 邮箱格式错误正确返回错误: %s", resp.Message)
	})
}

// TestUserLogin 测试用户登录功能
//
// 测试场景：
// 1. 正常登录（返回双Token）
// 2. 密码错误
// 3. 邮箱不存在
func TestUserLogin(t *testing.T) {
	RequireServer(t)

	// 先注册一个用户
	email := GenerateTestEmail("login_user")
	registerReq := map[string]string{
		"email":    email,
		"password": "Test1234",
		"nickname": "登录测试",
	}
	registerResp := PostJSON(t, BaseURL+"/users/register", registerReq, "")
	require.Equal(t, 0, registerResp.Code, "注册失败: %s", registerResp.Message)

	t.Run("正常登录", func(t *testing.T) {
		loginReq := map[string]string{
			"email":    email,
			"password": "Test1234",
		}

		resp := PostJSON(t, BaseURL+"/users/login", loginReq, "")
		assert.Equal(t, 0, resp.Code, "登录应该成功")

		var data LoginData
		err := json.Unmarshal(resp.Data, &data)
		require.NoError(t, err, "解析登录响应失败")

		assert.NotEmpty(t, data.AccessToken, "应该返回Access Token")
		assert.NotEmpty(t, data.RefreshToken, "应该返回Refresh Token")

		t.Logf("✓ 登录成功，获得双Token")
	})

	t.Run("密码错误应失败", func(t *testing.T) {
		loginReq := map[string]string{
			"email":    email,
			"password": "WrongPass1",
		}

		resp := PostJSON(t, BaseURL+"/users/login", loginReq, "")
		assert.NotEqual(t, 0, resp.Code, "密码错误应该失败")

		t.Logf("✓ 密码错误正确返回: %s", resp.Message)
	})

	t.Run("邮箱不存在应失败", func(t *testing.T) {
		loginReq := map[string]string{
			"email":    "nobody_" + email,
			"password": "Test1234",
		}

		resp := PostJSON(t, BaseURL+"/users/login", loginReq, "")
		assert.NotEqual(t, 0, resp.Code, "邮箱不存在应该失败")

		t.Logf("✓ 邮箱不存在正确返回: %s", resp.Message)
	})
}

// TestUserLogout 测试登出（Token黑名单）
//
// 教学说明：
// JWT是无状态的，登出通过Redis黑名单实现：
// 登出后同一个Token再访问受保护接口应被拒绝
func TestUserLogout(t *testing.T) {
	RequireServer(t)

	_, token := RegisterTestUser(t, "logout_user")

	// 登出前可以访问受保护接口
	before := GetJSON(t, BaseURL+"/orders", token)
	require.Equal(t, 0, before.Code, "登出前应该可以访问订单列表")

	// 登出
	logoutResp := PostJSON(t, BaseURL+"/users/logout", nil, token)
	assert.Equal(t, 0, logoutResp.Code, "登出应该成功")

	// 登出后同一Token被拒绝
	after := GetJSON(t, BaseURL+"/orders", token)
	assert.NotEqual(t, 0, after.Code, "登出后Token应该失效")

	t.Logf("✓ 登出后Token正确失效: %s", after.Message)
}
