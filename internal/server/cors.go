package server

import "net/http"

// CORS headers set on every response of a wrapped handler.
const (
	CORSAllowOrigin  = "*"
	CORSAllowMethods = "GET, OPTIONS"
	CORSAllowHeaders = "Content-Type, Accept"
)

// CORSMiddleware sets the permissive CORS headers used by the pipelines
// API. Preflight requests are left to the handler.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", CORSAllowOrigin)
		h.Set("Access-Control-Allow-Methods", CORSAllowMethods)
		h.Set("Access-Control-Allow-Headers", CORSAllowHeaders)
		next.ServeHTTP(w, r)
	})
}
