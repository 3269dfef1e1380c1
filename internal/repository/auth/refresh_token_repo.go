package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nova/internal/model/auth"
	"nova/internal/pkg/kvstore"
)

// ErrTokenNotFound 刷新 Token 不存在
var ErrTokenNotFound = errors.New("refresh token not found")

const refreshTokenPrefix = "rt:"

// RefreshTokenRepo RefreshToken仓库
// 按 Token 值存储并带 TTL，过期记录由存储引擎自行回收
type RefreshTokenRepo struct {
	store *kvstore.Store
}

// NewRefreshTokenRepo 创建RefreshToken仓库
func NewRefreshTokenRepo(store *kvstore.Store) *RefreshTokenRepo {
	return &RefreshTokenRepo{store: store}
}

// Create 创建RefreshToken
func (r *RefreshTokenRepo) Create(ctx context.Context, token *auth.RefreshToken) error {
	token.CreatedAt = time.Now()

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return errors.New("refresh token already expired")
	}
	return r.store.SetJSONWithTTL(refreshTokenPrefix+token.Token, token, ttl)
}

// FindByToken 根据Token值查询
func (r *RefreshTokenRepo) FindByToken(ctx context.Context, token string) (*auth.RefreshToken, error) {
	var refreshToken auth.RefreshToken
	err := r.store.GetJSON(refreshTokenPrefix+token, &refreshToken)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &refreshToken, nil
}

// Delete 删除指定Token
func (r *RefreshTokenRepo) Delete(ctx context.Context, token string) error {
	return r.store.Delete(refreshTokenPrefix + token)
}

// DeleteByUserID 删除用户的全部Token（强制下线）
func (r *RefreshTokenRepo) DeleteByUserID(ctx context.Context, userID string) error {
	var stale []string
	err := r.store.ScanPrefix(refreshTokenPrefix, func(key string, value []byte) error {
		var rt auth.RefreshToken
		if jsonErr := json.Unmarshal(value, &rt); jsonErr != nil {
			return nil
		}
		if rt.UserID == userID {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	return r.store.Delete(stale...)
}
