package auth

import (
	"context"
	"errors"
	"time"

	"nova/internal/model/auth"
	"nova/internal/pkg/kvstore"
)

// ErrUserNotFound 用户不存在
var ErrUserNotFound = errors.New("user not found")

const (
	userByIDPrefix    = "user:id:"
	userByNamePrefix  = "user:name:"
	userByEmailPrefix = "user:email:"
)

// userRecord 存储用的用户记录
// User.Password 序列化时被排除，落盘需要单独携带密码哈希
type userRecord struct {
	auth.User
	PasswordHash string `json:"password_hash"`
}

// UserRepo 用户仓库
// 主记录按 ID 存储，用户名和邮箱各维护一条指向 ID 的索引键
type UserRepo struct {
	store *kvstore.Store
}

// NewUserRepo 创建用户仓库
func NewUserRepo(store *kvstore.Store) *UserRepo {
	return &UserRepo{store: store}
}

// Create 创建用户
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := r.saveRecord(user); err != nil {
		return err
	}
	if err := r.store.Set(userByNamePrefix+user.Username, []byte(user.ID)); err != nil {
		return err
	}
	if user.Email != "" {
		return r.store.Set(userByEmailPrefix+user.Email, []byte(user.ID))
	}
	return nil
}

// FindByID 根据ID查询用户
func (r *UserRepo) FindByID(ctx context.Context, id string) (*auth.User, error) {
	var record userRecord
	err := r.store.GetJSON(userByIDPrefix+id, &record)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user := record.User
	user.Password = record.PasswordHash
	return &user, nil
}

// FindByUsername 根据用户名查询用户
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.findByIndex(ctx, userByNamePrefix+username)
}

// FindByEmail 根据邮箱查询用户
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findByIndex(ctx, userByEmailPrefix+email)
}

func (r *UserRepo) findByIndex(ctx context.Context, indexKey string) (*auth.User, error) {
	id, err := r.store.Get(indexKey)
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, string(id))
}

// Update 更新用户，自动刷新 updated_at
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	user.UpdatedAt = time.Now()
	return r.saveRecord(user)
}

func (r *UserRepo) saveRecord(user *auth.User) error {
	record := userRecord{User: *user, PasswordHash: user.Password}
	return r.store.SetJSON(userByIDPrefix+user.ID, &record)
}

// UpdateLastLogin 刷新最近登录时间
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	user.LastLoginAt = &now
	return r.Update(ctx, user)
}
