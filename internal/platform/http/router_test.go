package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/faeln1/clan-notifier/internal/app/controllers"
	"github.com/faeln1/clan-notifier/internal/app/services"
	"github.com/faeln1/clan-notifier/internal/platform/session"
)

func newTestRouter(t *testing.T, token string) stdhttp.Handler {
	t.Helper()
	manager := session.NewManager(nil)
	t.Cleanup(manager.CloseAll)
	svc := services.NewSessionService(manager, nil, nil, nil, services.SessionOptions{PruneInterval: time.Hour}, nil)
	return NewRouter(RouterConfig{
		SessionCtrl: controllers.NewSessionController(svc),
		Sessions:    manager,
		MasterToken: token,
	})
}

func do(t *testing.T, h stdhttp.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSessionRoutes(t *testing.T) {
	h := newTestRouter(t, "master")

	if rec := do(t, h, stdhttp.MethodGet, "/sessions", "", ""); rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec := do(t, h, stdhttp.MethodPost, "/sessions", `{"clanId":"c1","viewerId":"u1"}`, "master")
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("open: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, stdhttp.MethodPost, "/sessions", `{"clanId":"c1","viewerId":"u1"}`, "master"); rec.Code != stdhttp.StatusConflict {
		t.Fatalf("duplicate open: expected 409, got %d", rec.Code)
	}
	if rec := do(t, h, stdhttp.MethodPost, "/sessions", `{"clanId":""}`, "master"); rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("invalid open: expected 400, got %d", rec.Code)
	}

	created := time.Now().UTC().Format(time.RFC3339Nano)
	batch := `[{"id":"n1-1700000000000-x","category":"CLAN","title":"Clan invitation","metadata":{"clanId":"c1"},"createdAt":"` + created + `"}]`
	rec = do(t, h, stdhttp.MethodPost, "/sessions/c1/u1/notifications", batch, "master")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("ingest: status %d body %s", rec.Code, rec.Body.String())
	}
	var ingest struct {
		Actions []struct {
			NotificationID string `json:"notificationId"`
			Severity       string `json:"severity"`
		} `json:"actions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ingest); err != nil {
		t.Fatalf("decode ingest: %v", err)
	}
	if len(ingest.Actions) != 1 || ingest.Actions[0].Severity != "info" {
		t.Fatalf("unexpected actions %+v", ingest.Actions)
	}

	rec = do(t, h, stdhttp.MethodGet, "/sessions/c1/u1/processed", "", "master")
	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), "n1-1700000000000-x") {
		t.Fatalf("processed: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, stdhttp.MethodPost, "/sessions/c1/u1/prune", "", "master"); rec.Code != stdhttp.StatusOK {
		t.Fatalf("prune: status %d", rec.Code)
	}
	if rec := do(t, h, stdhttp.MethodGet, "/sessions/c1/u1/unknown", "", "master"); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("unknown subroute: expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, stdhttp.MethodDelete, "/sessions/c1/u1", "", "master"); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("close: status %d", rec.Code)
	}
	if rec := do(t, h, stdhttp.MethodGet, "/sessions/c1/u1/processed", "", "master"); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("closed session: expected 404, got %d", rec.Code)
	}
}

func TestHealthAndRoot(t *testing.T) {
	h := newTestRouter(t, "")
	if rec := do(t, h, stdhttp.MethodGet, "/health", "", ""); rec.Code != stdhttp.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := do(t, h, stdhttp.MethodGet, "/", "", ""); rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), "Clan Notifier") {
		t.Fatalf("root: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, stdhttp.MethodGet, "/nope", "", ""); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("unknown path: %d", rec.Code)
	}
}

func TestOpenAPIJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	if err := os.WriteFile(path, []byte("openapi: 3.0.3\ninfo:\n  title: Clan Notifier\n"), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	h := NewRouter(RouterConfig{SwaggerEnable: true, DocsPath: path})
	rec := do(t, h, stdhttp.MethodGet, "/openapi.json", "", "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("openapi.json: %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["openapi"] != "3.0.3" {
		t.Fatalf("unexpected doc %v", doc)
	}
}
