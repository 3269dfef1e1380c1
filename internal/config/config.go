package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AI      AIConfig      `mapstructure:"ai"`
	Video   VideoConfig   `mapstructure:"video"`
	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig 生成式 AI 服务配置
// Provider 决定文本对话走哪个后端；图片/视频生成固定使用 GenAI 系列模型
type AIConfig struct {
	Provider       string          `mapstructure:"provider"` // gemini, openai, ark
	APIKey         string          `mapstructure:"api_key"`
	BaseURL        string          `mapstructure:"base_url"`
	ChatModel      string          `mapstructure:"chat_model"`
	ImageModel     string          `mapstructure:"image_model"`
	ImageEditModel string          `mapstructure:"image_edit_model"`
	VideoModel     string          `mapstructure:"video_model"`
	Options        AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数（openai/ark provider 使用；gemini 由思考模式预设决定）
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// VideoConfig 视频生成轮询配置
// 轮询必须有上限，避免对一个永远不完成的任务无限等待
type VideoConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"` // 轮询间隔
	MaxAttempts  int           `mapstructure:"max_attempts"`  // 最大轮询次数
	Timeout      time.Duration `mapstructure:"timeout"`       // 总超时时间
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// StoreConfig 本地持久化存储配置 (Badger)
type StoreConfig struct {
	Path     string `mapstructure:"path"`      // 数据目录
	InMemory bool   `mapstructure:"in_memory"` // 纯内存模式（测试用）
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`           // JWT密钥
	AccessTokenExpiry  time.Duration `mapstructure:"access_token_expiry"`  // Access Token过期时间
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_token_expiry"` // Refresh Token过期时间
}

// StorageConfig 生成媒体文件的存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"` // 基础路径
	BaseURL  string `mapstructure:"base_url"`  // 基础URL（用于生成访问URL）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	validProviders := map[string]bool{"gemini": true, "openai": true, "ark": true, "": true}
	if !validProviders[c.AI.Provider] {
		return errors.New("invalid ai provider, must be gemini/openai/ark")
	}

	if c.Video.PollInterval <= 0 || c.Video.MaxAttempts <= 0 || c.Video.Timeout <= 0 {
		return errors.New("video polling must be bounded: poll_interval, max_attempts and timeout are required")
	}

	return nil
}
