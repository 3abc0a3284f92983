package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zig-index/zigdex/internal/config"
)

func TestInitLoggerDefaultsToStdout(t *testing.T) {
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "info"})
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("未指定文件时应输出到 stdout")
	}
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	if _, err := InitLogger(config.GlobalConfig{LogLevel: "noisy"}); err == nil {
		t.Fatalf("非法日志级别应返回错误")
	}
}

func TestInitLoggerCreatesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zigdex.log")
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "debug", LogFilePath: path})
	if err != nil {
		t.Fatalf("初始化失败: %v", err)
	}
	if logger.Out == os.Stdout {
		t.Fatalf("指定文件时不应输出到 stdout")
	}
	logger.Info("probe")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("日志文件应被创建: %v", err)
	}
}

func TestFetchFieldsShape(t *testing.T) {
	fields := FetchFields("repo", "alice/foo", true, false)
	if fields["kind"] != "repo" || fields["key"] != "alice/foo" {
		t.Fatalf("字段内容不符: %+v", fields)
	}
	if fields["cache_hit"] != true || fields["stale"] != false {
		t.Fatalf("命中标记不符: %+v", fields)
	}
}
