package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// GuardStore 业务守卫存储
// 设计说明：
// 1. 改址一次性标记：SETNX抢占,抢不到直接拒绝,挡掉绝大多数重复请求;
//    真正的一次性约束由orders.address_changed的条件UPDATE兜底,
//    Redis只是快速失败路径,丢了标记也不会破坏不变式
// 2. JWT黑名单：登出/强制下线后让Token提前失效
// Key设计：addr_changed:{order_no}、blacklist:{token}
type GuardStore struct {
	client *redis.Client
}

// NewGuardStore 创建守卫存储
func NewGuardStore(client *redis.Client) *GuardStore {
	return &GuardStore{client: client}
}

// MarkAddressChanged 抢占订单的改址标记
// 返回false表示标记已存在(该订单已经改过一次地址)
func (s *GuardStore) MarkAddressChanged(ctx context.Context, orderNo string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("addr_changed:%s", orderNo)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "写入改址标记失败")
	}
	return ok, nil
}

// UnmarkAddressChanged 回滚改址标记
// 数据库CAS没命中时调用,避免Redis标记把后续合法请求挡住
func (s *GuardStore) UnmarkAddressChanged(ctx context.Context, orderNo string) error {
	key := fmt.Sprintf("addr_changed:%s", orderNo)

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return apperrors.Wrap(err, "删除改址标记失败")
	}
	return nil
}

// AddToBlacklist 将Token加入黑名单
func (s *GuardStore) AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	key := fmt.Sprintf("blacklist:%s", token)

	if err := s.client.Set(ctx, key, "revoked", ttl).Err(); err != nil {
		return apperrors.Wrap(err, "添加Token到黑名单失败")
	}
	return nil
}

// IsInBlacklist 检查Token是否在黑名单中
func (s *GuardStore) IsInBlacklist(ctx context.Context, token string) (bool, error) {
	key := fmt.Sprintf("blacklist:%s", token)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "检查黑名单失败")
	}
	return exists > 0, nil
}
