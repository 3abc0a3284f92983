package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"1h" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述全局运行时行为，缓存层与 API 层共享同一份参数。
type GlobalConfig struct {
	ListenPort       int      `mapstructure:"ListenPort"`
	LogLevel         string   `mapstructure:"LogLevel"`
	LogFilePath      string   `mapstructure:"LogFilePath"`
	LogMaxSize       int      `mapstructure:"LogMaxSize"`
	LogMaxBackups    int      `mapstructure:"LogMaxBackups"`
	LogCompress      bool     `mapstructure:"LogCompress"`
	StoragePath      string   `mapstructure:"StoragePath"`
	CacheTTL         Duration `mapstructure:"CacheTTL"`
	FetchConcurrency int      `mapstructure:"FetchConcurrency"`
	UpstreamTimeout  Duration `mapstructure:"UpstreamTimeout"`
	WarmOnStart      bool     `mapstructure:"WarmOnStart"`
}

// GitHubConfig 决定远端 API 客户端如何访问 GitHub。
// Token 为空时匿名访问同样合法，只是配额更低。
type GitHubConfig struct {
	APIBaseURL string `mapstructure:"APIBaseURL"`
	Token      string `mapstructure:"Token"`
	TokenEnv   string `mapstructure:"TokenEnv"`
	UserAgent  string `mapstructure:"UserAgent"`
}

// CatalogConfig 指向站点收录条目的静态清单文件。
type CatalogConfig struct {
	Path string `mapstructure:"Path"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global  GlobalConfig  `mapstructure:",squash"`
	GitHub  GitHubConfig  `mapstructure:"GitHub"`
	Catalog CatalogConfig `mapstructure:"Catalog"`
}

// ResolveToken 返回生效的访问令牌：TokenEnv 指向的环境变量优先于明文 Token。
func (g GitHubConfig) ResolveToken(getenv func(string) string) string {
	if g.TokenEnv != "" && getenv != nil {
		if v := strings.TrimSpace(getenv(g.TokenEnv)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(g.Token)
}

// AuthMode 输出 `token` 或 `anonymous`，供日志字段使用。
func (g GitHubConfig) AuthMode(getenv func(string) string) string {
	if g.ResolveToken(getenv) != "" {
		return "token"
	}
	return "anonymous"
}
