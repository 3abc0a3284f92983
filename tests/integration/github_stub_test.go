package integration

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// githubStub 模拟 GitHub REST API 的子集，记录每次请求并支持切换到
// 限流模式。
type githubStub struct {
	server *httptest.Server

	mu          sync.Mutex
	requests    []string
	rateLimited bool
	resetAt     time.Time
	stars       int
}

func newGitHubStub(t *testing.T) *githubStub {
	t.Helper()
	stub := &githubStub{stars: 100}

	mux := http.NewServeMux()
	mux.HandleFunc("/", stub.handle)
	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *githubStub) URL() string { return s.server.URL }

func (s *githubStub) setRateLimited(resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimited = true
	s.resetAt = resetAt
}

func (s *githubStub) setStars(stars int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stars = stars
}

func (s *githubStub) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *githubStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.Path)
	limited := s.rateLimited
	resetAt := s.resetAt
	stars := s.stars
	s.mu.Unlock()

	w.Header().Set("X-Ratelimit-Limit", "5000")
	if limited {
		w.Header().Set("X-Ratelimit-Remaining", "0")
		w.Header().Set("X-Ratelimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "API rate limit exceeded"})
		return
	}
	w.Header().Set("X-Ratelimit-Remaining", "4999")

	path := r.URL.Path
	switch {
	case path == "/rate_limit":
		json.NewEncoder(w).Encode(map[string]any{
			"resources": map[string]any{
				"core": map[string]any{"limit": 5000, "remaining": 4999, "used": 1, "reset": time.Now().Add(time.Hour).Unix()},
			},
		})
	case path == "/repos/missing/repo":
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
	case matchRepoSubresource(path, "/readme"):
		w.Write([]byte("<h1>rendered readme</h1>"))
	case matchRepoSubresource(path, "/releases"):
		json.NewEncoder(w).Encode([]map[string]any{
			{"tag_name": "v0.1.0", "html_url": "https://example.com/v0.1.0"},
		})
	case matchRepoSubresource(path, "/contents/build.zig.zon"):
		zon := `.{ .name = "demo", .version = "1.0.0", .dependencies = .{ .dep = .{ .url = "https://example.com/d.tar.gz", .hash = "1220ff" } } }`
		json.NewEncoder(w).Encode(map[string]any{
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(zon)),
		})
	case matchRepoSubresource(path, "/commits"):
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"sha":      "abc123",
				"html_url": "https://example.com/c/abc123",
				"commit": map[string]any{
					"message": "initial commit",
					"author":  map[string]any{"name": "Someone", "date": "2026-08-01T10:00:00Z"},
				},
			},
		})
	case path == "/search/issues":
		json.NewEncoder(w).Encode(map[string]any{"total_count": 9})
	case len(path) > len("/users/") && path[:len("/users/")] == "/users/":
		json.NewEncoder(w).Encode(map[string]any{"login": path[len("/users/"):], "followers": 42})
	case len(path) > len("/repos/") && path[:len("/repos/")] == "/repos/":
		json.NewEncoder(w).Encode(map[string]any{
			"full_name":        path[len("/repos/"):],
			"stargazers_count": stars,
			"language":         "Zig",
			"owner":            map[string]any{"login": "stub"},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message": "unhandled stub path %s"}`, path)
	}
}

// matchRepoSubresource 判断路径是否为 /repos/{owner}/{name}<suffix>。
func matchRepoSubresource(path, suffix string) bool {
	if len(path) <= len(suffix) || path[len(path)-len(suffix):] != suffix {
		return false
	}
	return len(path) > len("/repos/") && path[:len("/repos/")] == "/repos/"
}
