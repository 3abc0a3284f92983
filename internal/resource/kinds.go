package resource

import (
	"sort"
	"strings"
)

// Kind 标识一种远端资源，同时也是磁盘缓存表的目录名。
type Kind string

const (
	KindRepo     Kind = "repo"
	KindReadme   Kind = "readme"
	KindReleases Kind = "releases"
	KindManifest Kind = "manifest"
	KindIssues   Kind = "issues"
	KindCommits  Kind = "commits"
	KindUser     Kind = "user"
)

// KeySpace 描述某类资源的键空间，诊断端用它说明 key 的含义。
type KeySpace string

const (
	KeySpaceRepo KeySpace = "owner/name"
	KeySpaceUser KeySpace = "username"
)

// Metadata 记录一种资源的静态信息，供存储层建表与诊断端使用。
type Metadata struct {
	Key         Kind
	Description string
	Payload     string
	KeySpace    KeySpace
}

var kinds = []Metadata{
	{Key: KindRepo, Description: "repository summary stats", Payload: "RepoSummary", KeySpace: KeySpaceRepo},
	{Key: KindReadme, Description: "rendered README HTML", Payload: "string", KeySpace: KeySpaceRepo},
	{Key: KindReleases, Description: "published releases", Payload: "[]Release", KeySpace: KeySpaceRepo},
	{Key: KindManifest, Description: "build.zig.zon dependency manifest", Payload: "Manifest", KeySpace: KeySpaceRepo},
	{Key: KindIssues, Description: "open issue and PR counts", Payload: "IssueCounts", KeySpace: KeySpaceRepo},
	{Key: KindCommits, Description: "recent commit history", Payload: "[]Commit", KeySpace: KeySpaceRepo},
	{Key: KindUser, Description: "author profile", Payload: "UserProfile", KeySpace: KeySpaceUser},
}

// All 返回按键排序的资源元数据列表。
func All() []Metadata {
	result := make([]Metadata, len(kinds))
	copy(result, kinds)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// Resolve 返回指定键的资源元数据。
func Resolve(key string) (Metadata, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(key)))
	for _, meta := range kinds {
		if meta.Key == normalized {
			return meta, true
		}
	}
	return Metadata{}, false
}

// Keys 返回所有资源种类的键值，供调试或诊断使用。
func Keys() []string {
	items := All()
	result := make([]string, len(items))
	for i, meta := range items {
		result[i] = string(meta.Key)
	}
	return result
}
