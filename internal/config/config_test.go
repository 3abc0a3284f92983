package config

import (
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.CacheTTL.DurationValue() != time.Hour {
		t.Fatalf("CacheTTL 应为 1h，得到 %v", cfg.Global.CacheTTL.DurationValue())
	}
	if cfg.Global.FetchConcurrency != 3 {
		t.Fatalf("FetchConcurrency 应为 3，得到 %d", cfg.Global.FetchConcurrency)
	}
	if cfg.Global.UpstreamTimeout.DurationValue() != 30*time.Second {
		t.Fatalf("UpstreamTimeout 默认值应为 30s")
	}
	if cfg.GitHub.APIBaseURL != "https://api.github.com" {
		t.Fatalf("APIBaseURL 解析错误: %s", cfg.GitHub.APIBaseURL)
	}
	if cfg.Catalog.Path == "" {
		t.Fatalf("Catalog.Path 应被解析为绝对路径")
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestValidateRejectsZeroTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Global.CacheTTL = Duration(0)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("CacheTTL 为 0 应当报错")
	}
}

func TestValidateRejectsExcessiveConcurrency(t *testing.T) {
	cfg := validConfig()
	cfg.Global.FetchConcurrency = 64
	if err := cfg.Validate(); err == nil {
		t.Fatalf("并发上限超过 32 应当报错")
	}
}

func TestValidateRejectsBadBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.GitHub.APIBaseURL = "ftp://api.github.com"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("非 http(s) 协议应当报错")
	}
}

func TestResolveTokenPrefersEnv(t *testing.T) {
	gh := GitHubConfig{Token: "file-token", TokenEnv: "ZIGDEX_TEST_TOKEN"}
	getenv := func(key string) string {
		if key == "ZIGDEX_TEST_TOKEN" {
			return "env-token"
		}
		return ""
	}
	if got := gh.ResolveToken(getenv); got != "env-token" {
		t.Fatalf("环境变量应优先生效，得到 %s", got)
	}
	if got := gh.ResolveToken(func(string) string { return "" }); got != "file-token" {
		t.Fatalf("环境变量为空时应退回明文 Token，得到 %s", got)
	}
	if mode := gh.AuthMode(getenv); mode != "token" {
		t.Fatalf("存在 Token 时 AuthMode 应为 token，得到 %s", mode)
	}
}
