package httpx

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

const (
	codeAuthRequired  = "AUTH_REQUIRED"
	codeForbidden     = "FORBIDDEN"
	codeOrderNotFound = "ORDER_NOT_FOUND"
	codeBadRequest    = "BAD_REQUEST"
	codeInternal      = "INTERNAL"
)
