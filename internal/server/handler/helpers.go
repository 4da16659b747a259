package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketlens/internal/platform/polymarket"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// setCacheHeader marks the response as shared-cacheable for ttl, with a
// stale-while-revalidate window of twice that. A non-positive ttl leaves the
// response uncached.
func setCacheHeader(w http.ResponseWriter, ttl time.Duration) {
	secs := int(ttl.Seconds())
	if secs <= 0 {
		return
	}
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", secs, secs*2))
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUpstreamError relays the status code of an upstream API failure when
// one is attached to the error, and falls back to 502 otherwise.
func writeUpstreamError(w http.ResponseWriter, err error, msg string) {
	var se *polymarket.StatusError
	if errors.As(err, &se) && se.Code >= 500 {
		writeError(w, se.Code, msg)
		return
	}
	writeError(w, http.StatusBadGateway, msg)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryFloat(r *http.Request, name string) float64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func queryBool(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
