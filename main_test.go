package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("ZIGDEX_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

// writeValidWorkspace 构建一份可通过校验的临时配置与目录清单。
func writeValidWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "packages.toml")
	catalogBody := "[[Package]]\nName = \"zls\"\nRepo = \"zigtools/zls\"\n"
	if err := os.WriteFile(catalogPath, []byte(catalogBody), 0o644); err != nil {
		t.Fatalf("写入清单失败: %v", err)
	}

	configPath := filepath.Join(dir, "config.toml")
	configBody := fmt.Sprintf(`ListenPort = 5000
StoragePath = %q
CacheTTL = "1h"
FetchConcurrency = 3

[GitHub]
UserAgent = "zigdex-test"

[Catalog]
Path = %q
`, filepath.Join(dir, "storage"), catalogPath)
	if err := os.WriteFile(configPath, []byte(configBody), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return configPath
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: writeValidWorkspace(t), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
}

func TestRunBadCatalogFails(t *testing.T) {
	useBufferWriters(t)
	configPath := writeValidWorkspace(t)

	// 把清单改坏：Repo 不是 owner/name 形式。
	dir := filepath.Dir(configPath)
	bad := "[[Package]]\nName = \"x\"\nRepo = \"not-a-repo\"\n"
	if err := os.WriteFile(filepath.Join(dir, "packages.toml"), []byte(bad), 0o644); err != nil {
		t.Fatalf("写入清单失败: %v", err)
	}

	code := run(cliOptions{configPath: configPath, checkOnly: true})
	if code == 0 {
		t.Fatalf("损坏的清单应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), "清单") {
		t.Fatalf("stderr 应提示清单错误，得到 %s", stdErrBuffer().String())
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOut.(*bytes.Buffer).String(), "zigdex") {
		t.Fatalf("version 输出应包含 zigdex 标识")
	}
}
