package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"nova/internal/config"
	"nova/internal/model/auth"
	"nova/internal/pkg/id"
	"nova/internal/pkg/kvstore"
	"nova/internal/pkg/logger"
	"nova/internal/pkg/password"
	authrepo "nova/internal/repository/auth"
)

func main() {
	// 1. 加载配置（与 cmd/root.go 保持一致的搜索路径）
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.nova")

	viper.SetEnvPrefix("NOVA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
		os.Exit(1)
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 打开本地存储
	kv, err := kvstore.Open(&cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		_ = kv.Close()
	}()

	ctx := context.Background()
	userRepo := authrepo.NewUserRepo(kv)

	// 3. 读取环境变量或使用默认值
	username := os.Getenv("INIT_USERNAME")
	if username == "" {
		username = "admin"
	}
	passwordPlain := os.Getenv("INIT_PASSWORD")
	if passwordPlain == "" {
		passwordPlain = "admin123"
	}
	email := os.Getenv("INIT_EMAIL")
	if email == "" {
		email = "admin@example.com"
	}

	// 4. 检查是否已存在
	user, err := userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			log.Info().Str("username", username).Msg("bootstrap user not found, will create")
			if err := createUser(ctx, userRepo, username, email, passwordPlain); err != nil {
				log.Fatal().Err(err).Msg("create bootstrap user failed")
			}
		} else {
			log.Fatal().Err(err).Msg("failed to query user")
		}
	} else {
		// 已存在，恢复为 active
		log.Info().Str("username", username).Msg("bootstrap user exists, will update status")
		user.Status = auth.UserStatusActive
		user.Email = email
		if err := userRepo.Update(ctx, user); err != nil {
			log.Fatal().Err(err).Msg("update bootstrap user failed")
		}
	}

	fmt.Printf("Bootstrap user initialized: username=%s password=%s status=active\n",
		username, passwordPlain)
}

func createUser(ctx context.Context, repo *authrepo.UserRepo, username, email, pwd string) error {
	hashed, err := password.Hash(pwd)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &auth.User{
		ID:        id.New(),
		Username:  username,
		Email:     email,
		Password:  hashed,
		Status:    auth.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return repo.Create(ctx, user)
}
