package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodePathSegment(raw string) string {
	value, err := url.PathUnescape(raw)
	if err != nil {
		log.Printf("failed to decode path segment %s: %v", raw, err)
		return raw
	}
	return value
}
