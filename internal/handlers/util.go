package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

func getBearerToken(r *http.Request) string {
	val := r.Header.Get("Authorization")
	if val == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(val) <= len(prefix) {
		return ""
	}
	if val[:len(prefix)] != prefix {
		return ""
	}
	return val[len(prefix):]
}

func normalizeShop(shop string) string {
	return strings.ToLower(strings.TrimSpace(shop))
}

func sessionKey(shop string) string {
	return "session:shop:" + normalizeShop(shop)
}

var errInvalidSession = errors.New("invalid session")

func newSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "fallback-session"
	}
	return hex.EncodeToString(b)
}

func mustJSON(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}
