// Package catalog 加载人工维护的目录清单：站点展示哪些 Zig 包由这份
// TOML 文件决定，GitHub 数据只是对它的增强。
package catalog

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Package 是目录中的一个条目。Repo 采用 owner/name 形式，它同时是
// 缓存层的键。
type Package struct {
	Name        string   `mapstructure:"Name"`
	Repo        string   `mapstructure:"Repo"`
	Description string   `mapstructure:"Description"`
	Tags        []string `mapstructure:"Tags"`
}

// Owner 返回 Repo 的 owner 部分，作者页用。
func (p Package) Owner() string {
	owner, _, _ := strings.Cut(p.Repo, "/")
	return owner
}

// Catalog 是加载并校验后的完整清单。
type Catalog struct {
	Packages []Package `mapstructure:"Package"`

	byRepo map[string]int
}

// Load 读取 TOML 清单。path 为空时返回空目录，站点可以只靠即席查询
// 运行。
func Load(path string) (*Catalog, error) {
	if path == "" {
		return &Catalog{byRepo: map[string]int{}}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取清单失败: %w", err)
	}

	var c Catalog
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("解析清单失败: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	c.byRepo = make(map[string]int, len(c.Packages))
	for i, pkg := range c.Packages {
		c.byRepo[pkg.Repo] = i
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]struct{}, len(c.Packages))
	for i, pkg := range c.Packages {
		if strings.TrimSpace(pkg.Name) == "" {
			return fmt.Errorf("清单第 %d 个条目缺少 Name", i+1)
		}
		owner, name, found := strings.Cut(pkg.Repo, "/")
		if !found || owner == "" || name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("清单条目 %s 的 Repo 必须为 owner/name 形式: %q", pkg.Name, pkg.Repo)
		}
		if _, dup := seen[pkg.Repo]; dup {
			return fmt.Errorf("清单中存在重复的 Repo: %s", pkg.Repo)
		}
		seen[pkg.Repo] = struct{}{}
	}
	return nil
}

// Keys 返回全部条目的缓存键，批量预热与列表页使用。
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.Packages))
	for i, pkg := range c.Packages {
		keys[i] = pkg.Repo
	}
	return keys
}

// Find 按 Repo 键查找条目。
func (c *Catalog) Find(repo string) (Package, bool) {
	idx, found := c.byRepo[repo]
	if !found {
		return Package{}, false
	}
	return c.Packages[idx], true
}

// Len 返回条目数量。
func (c *Catalog) Len() int {
	return len(c.Packages)
}
