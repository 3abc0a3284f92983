package ghapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// terminal 统一处理非 200 的分支。missingAsAbsent 为 true 时，404 被视为
// “子资源确认不存在”（payload 为 nil 的成功结果），否则视为实体缺失。
func terminal[T any](reply *apiReply, missingAsAbsent bool) (Response[T], bool) {
	outcome, resetAt := classify(reply)
	switch outcome {
	case OutcomeOK:
		return Response[T]{}, false
	case OutcomeNotFound:
		if missingAsAbsent {
			return ok[T](nil), true
		}
		return notFound[T](), true
	case OutcomeRateLimited:
		return rateLimited[T](resetAt), true
	default:
		return transportFailure[T](fmt.Errorf("unexpected upstream status %d", reply.status)), true
	}
}

type repoWire struct {
	FullName      string   `json:"full_name"`
	Description   string   `json:"description"`
	Stars         int      `json:"stargazers_count"`
	Forks         int      `json:"forks_count"`
	OpenIssues    int      `json:"open_issues_count"`
	Language      string   `json:"language"`
	DefaultBranch string   `json:"default_branch"`
	Homepage      string   `json:"homepage"`
	Topics        []string `json:"topics"`
	Archived      bool     `json:"archived"`
	Fork          bool     `json:"fork"`
	License       *struct {
		SpdxID string `json:"spdx_id"`
		Name   string `json:"name"`
	} `json:"license"`
	Owner *struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	} `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	PushedAt  time.Time `json:"pushed_at"`
}

// Repo 抓取仓库概要。404 映射为 NotFound，由上层落表为 deleted 状态。
func (c *Client) Repo(ctx context.Context, key string) Response[RepoSummary] {
	reply, err := c.get(ctx, "/repos/"+key, "")
	if err != nil {
		return transportFailure[RepoSummary](err)
	}
	if resp, done := terminal[RepoSummary](reply, false); done {
		return resp
	}

	var wire repoWire
	if err := json.Unmarshal(reply.body, &wire); err != nil {
		return parseFailure[RepoSummary](fmt.Errorf("decode repo %s: %w", key, err))
	}

	summary := RepoSummary{
		FullName:      wire.FullName,
		Description:   wire.Description,
		Stars:         wire.Stars,
		Forks:         wire.Forks,
		OpenIssues:    wire.OpenIssues,
		Language:      wire.Language,
		DefaultBranch: wire.DefaultBranch,
		Homepage:      wire.Homepage,
		Topics:        wire.Topics,
		Archived:      wire.Archived,
		Fork:          wire.Fork,
		CreatedAt:     wire.CreatedAt,
		PushedAt:      wire.PushedAt,
	}
	if wire.License != nil {
		summary.License = wire.License.SpdxID
		if summary.License == "" || summary.License == "NOASSERTION" {
			summary.License = wire.License.Name
		}
	}
	if wire.Owner != nil {
		summary.OwnerLogin = wire.Owner.Login
		summary.OwnerAvatar = wire.Owner.AvatarURL
	}
	return ok(&summary)
}

// Readme 抓取渲染后的 README HTML。仓库没有 README 属于确认不存在，
// 是可缓存的成功结果而不是错误。
func (c *Client) Readme(ctx context.Context, key string) Response[string] {
	reply, err := c.get(ctx, "/repos/"+key+"/readme", "application/vnd.github.html")
	if err != nil {
		return transportFailure[string](err)
	}
	if resp, done := terminal[string](reply, true); done {
		return resp
	}

	html := string(reply.body)
	return ok(&html)
}

type releaseWire struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	HTMLURL     string    `json:"html_url"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// Releases 抓取最近的发布版本，草稿不计入。
func (c *Client) Releases(ctx context.Context, key string) Response[[]Release] {
	reply, err := c.get(ctx, "/repos/"+key+"/releases?per_page=10", "")
	if err != nil {
		return transportFailure[[]Release](err)
	}
	if resp, done := terminal[[]Release](reply, true); done {
		return resp
	}

	var wires []releaseWire
	if err := json.Unmarshal(reply.body, &wires); err != nil {
		return parseFailure[[]Release](fmt.Errorf("decode releases %s: %w", key, err))
	}

	releases := make([]Release, 0, len(wires))
	for _, w := range wires {
		if w.Draft {
			continue
		}
		releases = append(releases, Release{
			TagName:     w.TagName,
			Name:        w.Name,
			URL:         w.HTMLURL,
			Prerelease:  w.Prerelease,
			PublishedAt: w.PublishedAt,
		})
	}
	return ok(&releases)
}

type contentsWire struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Manifest 抓取并解析 build.zig.zon。文件缺失（非 Zig 包仓库）是确认
// 不存在；解析失败归类为 ParseError。
func (c *Client) Manifest(ctx context.Context, key string) Response[Manifest] {
	reply, err := c.get(ctx, "/repos/"+key+"/contents/build.zig.zon", "")
	if err != nil {
		return transportFailure[Manifest](err)
	}
	if resp, done := terminal[Manifest](reply, true); done {
		return resp
	}

	var wire contentsWire
	if err := json.Unmarshal(reply.body, &wire); err != nil {
		return parseFailure[Manifest](fmt.Errorf("decode contents %s: %w", key, err))
	}
	if wire.Encoding != "base64" {
		return parseFailure[Manifest](fmt.Errorf("unexpected contents encoding %q for %s", wire.Encoding, key))
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(wire.Content, "\n", ""))
	if err != nil {
		return parseFailure[Manifest](fmt.Errorf("decode manifest body %s: %w", key, err))
	}

	manifest, err := parseZon(raw)
	if err != nil {
		return parseFailure[Manifest](fmt.Errorf("parse build.zig.zon %s: %w", key, err))
	}
	return ok(manifest)
}

type searchCountWire struct {
	TotalCount int `json:"total_count"`
}

// Issues 通过 search API 分别统计开放 issue 与 PR 数量。一次抓取可能
// 产生两个上游请求，任一失败则整体按该失败分类。
func (c *Client) Issues(ctx context.Context, key string) Response[IssueCounts] {
	issues, resp, failed := c.searchCount(ctx, key, "issue")
	if failed {
		return resp
	}
	prs, resp, failed := c.searchCount(ctx, key, "pr")
	if failed {
		return resp
	}

	counts := IssueCounts{OpenIssues: issues, OpenPRs: prs}
	return ok(&counts)
}

func (c *Client) searchCount(ctx context.Context, key, itemType string) (int, Response[IssueCounts], bool) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("repo:%s type:%s state:open", key, itemType))
	query.Set("per_page", "1")

	reply, err := c.get(ctx, "/search/issues?"+query.Encode(), "")
	if err != nil {
		return 0, transportFailure[IssueCounts](err), true
	}
	// search API 对不存在的仓库返回空结果而非 404，这里无需区分缺失语义。
	if resp, done := terminal[IssueCounts](reply, true); done {
		return 0, resp, true
	}

	var wire searchCountWire
	if err := json.Unmarshal(reply.body, &wire); err != nil {
		return 0, parseFailure[IssueCounts](fmt.Errorf("decode search count %s: %w", key, err)), true
	}
	return wire.TotalCount, Response[IssueCounts]{}, false
}

type commitWire struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
}

// Commits 抓取最近的提交历史。
func (c *Client) Commits(ctx context.Context, key string) Response[[]Commit] {
	reply, err := c.get(ctx, "/repos/"+key+"/commits?per_page=10", "")
	if err != nil {
		return transportFailure[[]Commit](err)
	}
	if resp, done := terminal[[]Commit](reply, true); done {
		return resp
	}

	var wires []commitWire
	if err := json.Unmarshal(reply.body, &wires); err != nil {
		return parseFailure[[]Commit](fmt.Errorf("decode commits %s: %w", key, err))
	}

	commits := make([]Commit, 0, len(wires))
	for _, w := range wires {
		commit := Commit{
			SHA:        w.SHA,
			Message:    firstLine(w.Commit.Message),
			AuthorName: w.Commit.Author.Name,
			URL:        w.HTMLURL,
			Date:       w.Commit.Author.Date,
		}
		if w.Author != nil {
			commit.AuthorLogin = w.Author.Login
		}
		commits = append(commits, commit)
	}
	return ok(&commits)
}

type userWire struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatar_url"`
	Bio         string    `json:"bio"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Blog        string    `json:"blog"`
	Followers   int       `json:"followers"`
	PublicRepos int       `json:"public_repos"`
	CreatedAt   time.Time `json:"created_at"`
}

// User 抓取作者公开资料。注销的账号是确认不存在，payload 为 nil。
func (c *Client) User(ctx context.Context, login string) Response[UserProfile] {
	reply, err := c.get(ctx, "/users/"+login, "")
	if err != nil {
		return transportFailure[UserProfile](err)
	}
	if resp, done := terminal[UserProfile](reply, true); done {
		return resp
	}

	var wire userWire
	if err := json.Unmarshal(reply.body, &wire); err != nil {
		return parseFailure[UserProfile](fmt.Errorf("decode user %s: %w", login, err))
	}

	profile := UserProfile(wire)
	return ok(&profile)
}

type quotaWire struct {
	Resources struct {
		Core struct {
			Limit     int   `json:"limit"`
			Remaining int   `json:"remaining"`
			Used      int   `json:"used"`
			Reset     int64 `json:"reset"`
		} `json:"core"`
	} `json:"resources"`
}

// Quota 查询当前核心配额。该端点本身不消耗配额。
func (c *Client) Quota(ctx context.Context) (*RateInfo, error) {
	reply, err := c.get(ctx, "/rate_limit", "")
	if err != nil {
		return nil, err
	}
	if reply.status != 200 {
		return nil, fmt.Errorf("unexpected upstream status %d", reply.status)
	}

	var wire quotaWire
	if err := json.Unmarshal(reply.body, &wire); err != nil {
		return nil, fmt.Errorf("decode rate limit: %w", err)
	}

	core := wire.Resources.Core
	return &RateInfo{
		Known:     true,
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Used:      core.Used,
		ResetAt:   time.Unix(core.Reset, 0).UTC(),
	}, nil
}

func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return strings.TrimSpace(message[:idx])
	}
	return strings.TrimSpace(message)
}
