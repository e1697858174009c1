package user

import (
	"context"
	"time"

	"github.com/eason8811/international-shopping-sub001/internal/domain/user"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/persistence/redis"
	"github.com/eason8811/international-shopping-sub001/pkg/jwt"
)

// LoginUseCase 用户登录用例
// 设计说明：
// 1. 验证邮箱密码
// 2. 生成JWT Token对（Claims里带角色，管理端接口靠它做鉴权）
type LoginUseCase struct {
	userService user.Service
	jwtManager  *jwt.Manager
}

// NewLoginUseCase 创建登录用例
func NewLoginUseCase(userService user.Service, jwtManager *jwt.Manager) *LoginUseCase {
	return &LoginUseCase{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// Execute 执行登录
func (uc *LoginUseCase) Execute(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	// 1. 验证邮箱密码（调用领域服务）
	u, err := uc.userService.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	// 2. 生成JWT Token对
	tokenPair, err := uc.jwtManager.GenerateToken(u.ID, u.Role)
	if err != nil {
		return nil, err
	}

	// 3. 返回登录响应
	return &LoginResponse{
		User: UserInfo{
			ID:       u.ID,
			Email:    u.Email,
			Nickname: u.Nickname,
			Role:     u.Role,
		},
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	}, nil
}

// LogoutUseCase 用户登出用例
// Token是无状态的,登出只能靠黑名单让它提前失效
type LogoutUseCase struct {
	guardStore *redis.GuardStore
}

// NewLogoutUseCase 创建登出用例
func NewLogoutUseCase(guardStore *redis.GuardStore) *LogoutUseCase {
	return &LogoutUseCase{guardStore: guardStore}
}

// Execute 执行登出
// 黑名单TTL与Access Token有效期一致即可,过期后Token自然失效
func (uc *LogoutUseCase) Execute(ctx context.Context, accessToken string) error {
	return uc.guardStore.AddToBlacklist(ctx, accessToken, 2*time.Hour)
}

// =========================================
// 应用层DTO
// =========================================

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string
	Password string
}

// LoginResponse 登录响应
type LoginResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"` // Access Token过期时间（秒）
}

// UserInfo 用户信息
type UserInfo struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}
