package ghapi

import "time"

// RepoSummary 是仓库概要信息，驱动目录页的核心字段。
type RepoSummary struct {
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"open_issues"`
	Language      string    `json:"language"`
	DefaultBranch string    `json:"default_branch"`
	License       string    `json:"license,omitempty"`
	Homepage      string    `json:"homepage,omitempty"`
	Topics        []string  `json:"topics,omitempty"`
	Archived      bool      `json:"archived"`
	Fork          bool      `json:"fork"`
	OwnerLogin    string    `json:"owner_login"`
	OwnerAvatar   string    `json:"owner_avatar,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	PushedAt      time.Time `json:"pushed_at"`
}

// Release 是一次已发布的版本。
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name,omitempty"`
	URL         string    `json:"url"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// Dependency 是 build.zig.zon 中声明的一个依赖项。
type Dependency struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Hash string `json:"hash,omitempty"`
	Path string `json:"path,omitempty"`
}

// Manifest 是解析后的 build.zig.zon 清单。
type Manifest struct {
	Name         string       `json:"name,omitempty"`
	Version      string       `json:"version,omitempty"`
	Dependencies []Dependency `json:"dependencies"`
}

// IssueCounts 汇总开放 issue 与 PR 数量。
type IssueCounts struct {
	OpenIssues int `json:"open_issues"`
	OpenPRs    int `json:"open_prs"`
}

// Commit 是提交历史中的一条记录。
type Commit struct {
	SHA         string    `json:"sha"`
	Message     string    `json:"message"`
	AuthorLogin string    `json:"author_login,omitempty"`
	AuthorName  string    `json:"author_name,omitempty"`
	URL         string    `json:"url"`
	Date        time.Time `json:"date"`
}

// UserProfile 是包作者的公开资料。
type UserProfile struct {
	Login       string    `json:"login"`
	Name        string    `json:"name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Company     string    `json:"company,omitempty"`
	Location    string    `json:"location,omitempty"`
	Blog        string    `json:"blog,omitempty"`
	Followers   int       `json:"followers"`
	PublicRepos int       `json:"public_repos"`
	CreatedAt   time.Time `json:"created_at"`
}

// RateInfo 汇总一次响应携带的配额头。Known 为 false 时其余字段无意义。
type RateInfo struct {
	Known     bool      `json:"-"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	ResetAt   time.Time `json:"reset_at"`
}
