package storagefactory

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"nova/internal/config"
)

func TestNewStorage(t *testing.T) {
	Convey("创建存储实例", t, func() {
		ctx := context.Background()

		Convey("local 类型返回本地存储", func() {
			cfg := &config.StorageConfig{
				Type: "local",
				Local: &config.LocalConfig{
					BasePath: t.TempDir(),
					BaseURL:  "http://localhost:8080/files",
				},
			}

			s, err := NewStorage(ctx, cfg)
			So(err, ShouldBeNil)
			So(s, ShouldNotBeNil)
		})

		Convey("local 类型缺少配置时报错", func() {
			cfg := &config.StorageConfig{Type: "local"}

			_, err := NewStorage(ctx, cfg)
			So(err, ShouldNotBeNil)
		})

		Convey("oss 类型缺少配置时报错", func() {
			cfg := &config.StorageConfig{Type: "oss"}

			_, err := NewStorage(ctx, cfg)
			So(err, ShouldNotBeNil)
		})

		Convey("未知类型报错", func() {
			cfg := &config.StorageConfig{Type: "s3"}

			_, err := NewStorage(ctx, cfg)
			So(err, ShouldNotBeNil)
		})
	})
}
