package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"nova/internal/config"
	authModel "nova/internal/model/auth"
	"nova/internal/pkg/id"
	"nova/internal/pkg/kvstore"
)

func newTestStore(t *testing.T) *kvstore.Store {
	t.Helper()
	kv, err := kvstore.Open(&config.StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open in-memory kv store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestUserRepo(t *testing.T) {
	Convey("UserRepo 用户仓库测试", t, func() {
		kv := newTestStore(t)
		repo := NewUserRepo(kv)
		ctx := context.Background()

		user := &authModel.User{
			ID:       id.New(),
			Username: "alice",
			Email:    "alice@example.com",
			Password: "$2a$10$hashhashhash",
			Status:   authModel.UserStatusActive,
		}

		Convey("创建后可按ID、用户名、邮箱查询", func() {
			So(repo.Create(ctx, user), ShouldBeNil)

			byID, err := repo.FindByID(ctx, user.ID)
			So(err, ShouldBeNil)
			So(byID.Username, ShouldEqual, "alice")

			byName, err := repo.FindByUsername(ctx, "alice")
			So(err, ShouldBeNil)
			So(byName.ID, ShouldEqual, user.ID)

			byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
			So(err, ShouldBeNil)
			So(byEmail.ID, ShouldEqual, user.ID)

			Convey("密码哈希跨存取保留", func() {
				So(byID.Password, ShouldEqual, "$2a$10$hashhashhash")
			})
		})

		Convey("不存在的用户返回 ErrUserNotFound", func() {
			_, err := repo.FindByID(ctx, "missing")
			So(errors.Is(err, ErrUserNotFound), ShouldBeTrue)

			_, err = repo.FindByUsername(ctx, "nobody")
			So(errors.Is(err, ErrUserNotFound), ShouldBeTrue)
		})

		Convey("UpdateLastLogin 刷新最近登录时间", func() {
			So(repo.Create(ctx, user), ShouldBeNil)
			So(repo.UpdateLastLogin(ctx, user.ID), ShouldBeNil)

			got, err := repo.FindByID(ctx, user.ID)
			So(err, ShouldBeNil)
			So(got.LastLoginAt, ShouldNotBeNil)
		})
	})
}

func TestRefreshTokenRepo(t *testing.T) {
	Convey("RefreshTokenRepo 刷新Token仓库测试", t, func() {
		kv := newTestStore(t)
		repo := NewRefreshTokenRepo(kv)
		ctx := context.Background()

		newToken := func(userID, value string) *authModel.RefreshToken {
			return &authModel.RefreshToken{
				ID:        id.New(),
				UserID:    userID,
				Token:     value,
				ExpiresAt: time.Now().Add(time.Hour),
			}
		}

		Convey("创建后可按Token值查询", func() {
			So(repo.Create(ctx, newToken("user-1", "tok-1")), ShouldBeNil)

			got, err := repo.FindByToken(ctx, "tok-1")
			So(err, ShouldBeNil)
			So(got.UserID, ShouldEqual, "user-1")
		})

		Convey("已过期的Token拒绝创建", func() {
			expired := newToken("user-1", "tok-x")
			expired.ExpiresAt = time.Now().Add(-time.Minute)
			So(repo.Create(ctx, expired), ShouldNotBeNil)
		})

		Convey("删除后不可再查询", func() {
			So(repo.Create(ctx, newToken("user-1", "tok-1")), ShouldBeNil)
			So(repo.Delete(ctx, "tok-1"), ShouldBeNil)

			_, err := repo.FindByToken(ctx, "tok-1")
			So(errors.Is(err, ErrTokenNotFound), ShouldBeTrue)
		})

		Convey("DeleteByUserID 只清除该用户的Token", func() {
			So(repo.Create(ctx, newToken("user-1", "tok-1")), ShouldBeNil)
			So(repo.Create(ctx, newToken("user-1", "tok-2")), ShouldBeNil)
			So(repo.Create(ctx, newToken("user-2", "tok-3")), ShouldBeNil)

			So(repo.DeleteByUserID(ctx, "user-1"), ShouldBeNil)

			_, err := repo.FindByToken(ctx, "tok-1")
			So(errors.Is(err, ErrTokenNotFound), ShouldBeTrue)
			_, err = repo.FindByToken(ctx, "tok-3")
			So(err, ShouldBeNil)
		})
	})
}
