package ghapi

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zig-index/zigdex/internal/config"
)

// maxBodyBytes 限制单次响应体大小，README 等资源足够用。
const maxBodyBytes = 8 << 20

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Outcome 分类一次远端请求的结果，调用方据此决定缓存与回退行为。
type Outcome int

const (
	// OutcomeOK 表示请求成功，Payload 有效（可能为 nil = 确认不存在）。
	OutcomeOK Outcome = iota
	// OutcomeNotFound 表示实体本身在上游不存在（仅 repo 表映射为 deleted）。
	OutcomeNotFound
	// OutcomeRateLimited 表示配额耗尽，ResetAt 携带恢复时间。
	OutcomeRateLimited
	// OutcomeTransport 表示网络或上游故障，不可缓存。
	OutcomeTransport
	// OutcomeParse 表示响应体不符合预期结构；回退行为与 Transport 相同，
	// 但日志中需要区分。
	OutcomeParse
)

// String 供日志字段输出。
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransport:
		return "transport_error"
	case OutcomeParse:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Response 是单次资源抓取的结果信封。
type Response[T any] struct {
	Outcome Outcome
	// Payload 在 OutcomeOK 时有效；nil 表示上游确认该子资源不存在。
	Payload *T
	// ResetAt 在 OutcomeRateLimited 时有效。
	ResetAt time.Time
	// Err 在 Transport/Parse 时携带细节。
	Err error
}

// Failure 返回该结果是否应触发旧值回退（限流或故障）。
func (r Response[T]) Failure() bool {
	return r.Outcome == OutcomeRateLimited || r.Outcome == OutcomeTransport || r.Outcome == OutcomeParse
}

func ok[T any](payload *T) Response[T] {
	return Response[T]{Outcome: OutcomeOK, Payload: payload}
}

func notFound[T any]() Response[T] {
	return Response[T]{Outcome: OutcomeNotFound}
}

func rateLimited[T any](resetAt time.Time) Response[T] {
	return Response[T]{Outcome: OutcomeRateLimited, ResetAt: resetAt}
}

func transportFailure[T any](err error) Response[T] {
	return Response[T]{Outcome: OutcomeTransport, Err: err}
}

func parseFailure[T any](err error) Response[T] {
	return Response[T]{Outcome: OutcomeParse, Err: err}
}

// Client 是共享的 GitHub API 客户端，所有资源种类复用同一实例。
type Client struct {
	http      *http.Client
	baseURL   string
	token     string
	userAgent string
	logger    *logrus.Logger
}

// NewClient 根据配置构建客户端。Token 缺失时匿名访问，配额更低但合法。
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	timeout := 30 * time.Second
	if cfg != nil && cfg.Global.UpstreamTimeout.DurationValue() > 0 {
		timeout = cfg.Global.UpstreamTimeout.DurationValue()
	}

	baseURL := "https://api.github.com"
	token := ""
	userAgent := "zigdex"
	if cfg != nil {
		if cfg.GitHub.APIBaseURL != "" {
			baseURL = strings.TrimRight(cfg.GitHub.APIBaseURL, "/")
		}
		token = cfg.GitHub.ResolveToken(os.Getenv)
		if cfg.GitHub.UserAgent != "" {
			userAgent = cfg.GitHub.UserAgent
		}
	}

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: defaultTransport.Clone(),
		},
		baseURL:   baseURL,
		token:     token,
		userAgent: userAgent,
		logger:    logger,
	}
}

// apiReply 聚合一次请求的状态码、响应体与配额头。
type apiReply struct {
	status int
	body   []byte
	rate   RateInfo
}

// get 执行一次 GET 并读取完整响应体；错误仅在传输层失败时返回。
func (c *Client) get(ctx context.Context, path, accept string) (*apiReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, err
	}

	if accept == "" {
		accept = "application/vnd.github+json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "upstream_request",
			"path":   path,
			"status": resp.StatusCode,
		}).Debug("github request complete")
	}

	return &apiReply{
		status: resp.StatusCode,
		body:   body,
		rate:   parseRateHeaders(resp.Header),
	}, nil
}

// parseRateHeaders 提取 X-RateLimit-* 配额头；Remaining 头缺失时 Known 为 false。
func parseRateHeaders(header http.Header) RateInfo {
	remaining := header.Get("X-Ratelimit-Remaining")
	if remaining == "" {
		return RateInfo{}
	}

	info := RateInfo{Known: true}
	info.Remaining, _ = strconv.Atoi(remaining)
	info.Limit, _ = strconv.Atoi(header.Get("X-Ratelimit-Limit"))
	info.Used, _ = strconv.Atoi(header.Get("X-Ratelimit-Used"))
	if reset := header.Get("X-Ratelimit-Reset"); reset != "" {
		if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
			info.ResetAt = time.Unix(epoch, 0).UTC()
		}
	}
	return info
}

// classify 将状态码与配额头映射为 Outcome。剩余配额为 0 时即便状态码是
// 200 也按限流处理，因为部分端点以这种方式报告耗尽。
func classify(reply *apiReply) (Outcome, time.Time) {
	if reply.rate.Known && reply.rate.Remaining <= 0 {
		return OutcomeRateLimited, resetOrZero(reply.rate)
	}

	switch {
	case reply.status >= 200 && reply.status < 300:
		return OutcomeOK, time.Time{}
	case reply.status == http.StatusNotFound:
		return OutcomeNotFound, time.Time{}
	case reply.status == http.StatusForbidden:
		return OutcomeRateLimited, resetOrZero(reply.rate)
	default:
		return OutcomeTransport, time.Time{}
	}
}

func resetOrZero(rate RateInfo) time.Time {
	if rate.Known {
		return rate.ResetAt
	}
	return time.Time{}
}
