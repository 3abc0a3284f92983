package config

import (
	"errors"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if g.CacheTTL.DurationValue() <= 0 {
		return newFieldError("Global.CacheTTL", "必须大于 0")
	}
	if g.FetchConcurrency <= 0 {
		return newFieldError("Global.FetchConcurrency", "必须大于 0")
	}
	if g.FetchConcurrency > 32 {
		return newFieldError("Global.FetchConcurrency", "不应超过 32，避免触发上游突发限流")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	gh := c.GitHub
	if strings.TrimSpace(gh.APIBaseURL) == "" {
		return newFieldError("GitHub.APIBaseURL", "不能为空")
	}
	parsed, err := url.Parse(gh.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return newFieldError("GitHub.APIBaseURL", "必须是合法的 http(s) 地址")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return newFieldError("GitHub.APIBaseURL", "仅支持 http/https 协议")
	}
	if gh.UserAgent == "" {
		return newFieldError("GitHub.UserAgent", "不能为空")
	}

	return nil
}
