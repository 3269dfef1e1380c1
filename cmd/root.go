package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nova/internal/config"
	"nova/internal/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nova",
	Short: "Nova - Gemini chat & media generation service",
	Long: `Nova is a streaming chat and media generation backend.
It hosts per-user chat sessions against Google GenAI (text, image, video),
keeps transcripts and media history in a local key-value store, and exposes
the session state machine over a REST/SSE API.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.nova")
	}

	// 环境变量设置
	viper.SetEnvPrefix("NOVA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 7080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")

	// AI
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.chat_model", "gemini-2.5-flash")
	viper.SetDefault("ai.image_model", "imagen-4.0-generate-001")
	viper.SetDefault("ai.image_edit_model", "gemini-2.5-flash-image-preview")
	viper.SetDefault("ai.video_model", "veo-2.0-generate-001")

	// Video polling
	viper.SetDefault("video.poll_interval", "10s")
	viper.SetDefault("video.max_attempts", 30)
	viper.SetDefault("video.timeout", "6m")

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// Store (badger)
	viper.SetDefault("store.path", "./data/nova")

	// Storage (generated media blobs)
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "./data/media")
	viper.SetDefault("storage.local.base_url", "http://localhost:7080/media")
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
