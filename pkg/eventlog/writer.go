package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var invalidSegment = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Writer grava em disco um JSON por registro, agrupado por escopo e tipo, servindo de trilha de auditoria.
type Writer struct {
	baseDir string
	log     waLog.Logger
	now     func() time.Time
}

// NewWriter cria uma instância pronta para gravar no diretório informado; retorna nil se vazio.
func NewWriter(baseDir string, log waLog.Logger) *Writer {
	base := strings.TrimSpace(baseDir)
	if base == "" {
		return nil
	}
	return &Writer{baseDir: filepath.Clean(base), log: log, now: time.Now}
}

// Enabled informa se a gravação está ativa.
func (w *Writer) Enabled() bool {
	return w != nil && w.baseDir != ""
}

// Record armazena payload em baseDir/<scope>/<kind>/timestamp-uuid.json.
func (w *Writer) Record(scope, kind string, payload any) error {
	if !w.Enabled() {
		return nil
	}

	dir := filepath.Join(w.baseDir, sanitizeSegment(scope), sanitizeSegment(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	ts := w.now().UTC()
	fileName := fmt.Sprintf("%s-%s.json", ts.Format("20060102T150405Z"), uuid.NewString())
	path := filepath.Join(dir, fileName)

	record := map[string]any{
		"scope":       scope,
		"kind":        kind,
		"recorded_at": ts.Format(time.RFC3339Nano),
		"payload":     payload,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s/%s record: %w", scope, kind, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if w.log != nil {
		w.log.Debugf("registro gravado em %s", path)
	}
	return nil
}

func sanitizeSegment(raw string) string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "unknown"
	}
	sanitized := invalidSegment.ReplaceAllString(candidate, "_")
	sanitized = strings.Trim(sanitized, "._-")
	if sanitized == "" {
		return "unknown"
	}
	return sanitized
}
