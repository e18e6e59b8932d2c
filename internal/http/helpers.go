package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gymops/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// refTime resolves the reporting reference time. Callers may pin it with a
// ?ref=YYYY-MM-DD query parameter; otherwise the request time is used.
func refTime(r *http.Request) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("ref"))
	if v == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(core.ISODate, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ref date %q, want YYYY-MM-DD", v)
	}
	return t, nil
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
