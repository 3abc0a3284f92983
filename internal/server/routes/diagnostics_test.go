package routes

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func TestQuotaEndpoint(t *testing.T) {
	app, _ := newAPIApp(t, &fakeRemote{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/quota", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Upstream struct {
			Limit     int `json:"limit"`
			Remaining int `json:"remaining"`
		} `json:"upstream"`
		Gate struct {
			Limited bool `json:"limited"`
		} `json:"gate"`
	}
	decodeBody(t, resp.Body, &body)
	if body.Upstream.Limit != 5000 || body.Upstream.Remaining != 4321 {
		t.Errorf("unexpected upstream quota: %+v", body.Upstream)
	}
	if body.Gate.Limited {
		t.Error("gate should be open")
	}
}

func TestQuotaEndpointUnreachableStillReportsGate(t *testing.T) {
	app, _ := newAPIApp(t, &fakeRemote{quotaErr: errors.New("down")}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/quota", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	var body map[string]json.RawMessage
	decodeBody(t, resp.Body, &body)
	if _, found := body["gate"]; !found {
		t.Error("gate state missing from error body")
	}
}

func TestKindsEndpoints(t *testing.T) {
	app, _ := newAPIApp(t, &fakeRemote{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/kinds", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	var body struct {
		Kinds []kindPayload `json:"kinds"`
	}
	decodeBody(t, resp.Body, &body)
	if len(body.Kinds) != 7 {
		t.Fatalf("got %d kinds, want 7", len(body.Kinds))
	}
	for i := 1; i < len(body.Kinds); i++ {
		if body.Kinds[i-1].Key >= body.Kinds[i].Key {
			t.Fatalf("kinds not sorted: %s before %s", body.Kinds[i-1].Key, body.Kinds[i].Key)
		}
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/-/kinds/repo", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	var detail kindPayload
	decodeBody(t, resp.Body, &detail)
	if detail.Key != "repo" || detail.KeySpace != "owner/name" {
		t.Errorf("unexpected kind detail: %+v", detail)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/-/kinds/nope", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown kind, got %d", resp.StatusCode)
	}
}

func TestCacheClearEndpoint(t *testing.T) {
	app, _ := newAPIApp(t, &fakeRemote{}, nil)

	// 先种一条记录再清空，随后的读取应重新打远端。
	if _, err := app.Test(httptest.NewRequest("GET", "/api/repos/a/b", nil)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/-/cache/clear", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Cleared bool `json:"cleared"`
	}
	decodeBody(t, resp.Body, &body)
	if !body.Cleared {
		t.Error("expected cleared=true")
	}
}
