package http

import (
	"encoding/json"
	stdhttp "net/http"
	"os"
	"strings"
	"sync"

	"github.com/faeln1/clan-notifier/internal/app/controllers"
	"github.com/faeln1/clan-notifier/internal/platform/middleware"
	"github.com/faeln1/clan-notifier/internal/platform/session"
	waLog "go.mau.fi/whatsmeow/util/log"
	yaml "gopkg.in/yaml.v3"
)

const defaultDocsPath = "docs/openapi.yaml"

type RouterConfig struct {
	SessionCtrl   *controllers.SessionController
	Sessions      *session.Manager
	Logger        waLog.Logger
	SwaggerEnable bool
	DocsPath      string
	MasterToken   string
}

func NewRouter(cfg RouterConfig) stdhttp.Handler {
	if cfg.Logger == nil {
		cfg.Logger = waLog.Noop
	}
	mux := stdhttp.NewServeMux()

	mux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.URL.Path != "/" {
			writeStatus(w, stdhttp.StatusNotFound, "endpoint not found")
			return
		}
		if r.Method != stdhttp.MethodGet {
			writeStatus(w, stdhttp.StatusMethodNotAllowed, "method not allowed")
			return
		}
		sessionCount := 0
		if cfg.Sessions != nil {
			sessionCount = len(cfg.Sessions.List())
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"name":        "Clan Notifier",
			"version":     "0.1.0",
			"description": "Reconciles clan notifications into viewer actions",
			"sessions": map[string]interface{}{
				"count": sessionCount,
			},
			"endpoints": map[string]string{
				"health":        "/health",
				"sessions":      "/sessions",
				"documentation": "/docs",
				"openapi_yaml":  "/openapi.yaml",
				"openapi_json":  "/openapi.json",
			},
		})
	})

	mux.HandleFunc("/health", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if cfg.SwaggerEnable {
		registerDocs(mux, cfg.DocsPath)
	}

	// /sessions e /sessions/{clanId}/{viewerId}[/notifications|/processed|/prune]
	sessionMux := stdhttp.NewServeMux()
	sessionMux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if cfg.SessionCtrl == nil {
			w.WriteHeader(stdhttp.StatusServiceUnavailable)
			return
		}
		if r.URL.Path == "/sessions" || r.URL.Path == "/sessions/" {
			switch r.Method {
			case stdhttp.MethodGet:
				cfg.SessionCtrl.List(w, r)
			case stdhttp.MethodPost:
				cfg.SessionCtrl.Open(w, r)
			default:
				w.WriteHeader(stdhttp.StatusMethodNotAllowed)
			}
			return
		}

		segments := splitSegments(strings.TrimPrefix(r.URL.EscapedPath(), "/sessions/"))
		if len(segments) < 2 || len(segments) > 3 {
			w.WriteHeader(stdhttp.StatusNotFound)
			return
		}
		clanID, viewerID := segments[0], segments[1]
		if len(segments) == 2 {
			if r.Method == stdhttp.MethodDelete {
				cfg.SessionCtrl.Close(w, r, clanID, viewerID)
				return
			}
			w.WriteHeader(stdhttp.StatusMethodNotAllowed)
			return
		}
		switch segments[2] {
		case "notifications":
			if r.Method == stdhttp.MethodPost {
				cfg.SessionCtrl.Ingest(w, r, clanID, viewerID)
				return
			}
		case "processed":
			if r.Method == stdhttp.MethodGet {
				cfg.SessionCtrl.Processed(w, r, clanID, viewerID)
				return
			}
		case "prune":
			if r.Method == stdhttp.MethodPost {
				cfg.SessionCtrl.Prune(w, r, clanID, viewerID)
				return
			}
		default:
			w.WriteHeader(stdhttp.StatusNotFound)
			return
		}
		w.WriteHeader(stdhttp.StatusMethodNotAllowed)
	})

	authenticated := middleware.BearerAuth(middleware.MasterToken(cfg.MasterToken))(sessionMux)
	mux.Handle("/sessions", authenticated)
	mux.Handle("/sessions/", authenticated)

	return middleware.Logging(cfg.Logger)(middleware.CORS(mux))
}

func registerDocs(mux *stdhttp.ServeMux, path string) {
	if path == "" {
		path = defaultDocsPath
	}
	var (
		once     sync.Once
		yamlData []byte
		yamlErr  error
	)
	loadYAML := func() ([]byte, error) {
		once.Do(func() { yamlData, yamlErr = os.ReadFile(path) })
		return yamlData, yamlErr
	}
	mux.HandleFunc("/openapi.yaml", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		data, err := loadYAML()
		if err != nil {
			w.WriteHeader(stdhttp.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.Write(data)
	})
	mux.HandleFunc("/openapi.json", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		data, err := loadYAML()
		if err != nil {
			w.WriteHeader(stdhttp.StatusNotFound)
			return
		}
		// yaml.v3 decodes mappings into map[string]interface{}, so json can encode it directly
		var v interface{}
		if err := yaml.Unmarshal(data, &v); err != nil {
			w.WriteHeader(stdhttp.StatusInternalServerError)
			return
		}
		jsonBytes, err := json.Marshal(v)
		if err != nil {
			w.WriteHeader(stdhttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(jsonBytes)
	})
	mux.HandleFunc("/docs", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html><html><head><title>Clan Notifier API</title><link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css"/></head><body><div id="swagger-ui"></div><script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script><script>window.onload=()=>{SwaggerUIBundle({url:'/openapi.yaml',dom_id:'#swagger-ui'});};</script></body></html>`))
	})
}

func splitSegments(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment != "" {
			out = append(out, segment)
		}
	}
	return out
}

func writeStatus(w stdhttp.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
