package http

import (
	"net/http"
	"strconv"

	"github.com/tidemark/stockroom/pkg/httputil"
	"github.com/tidemark/stockroom/pkg/middleware"
)

// ContentTypeJSON rejects mutating requests whose body is not declared as
// JSON. GET and DELETE requests carry no body and pass through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := r.Header.Get("Content-Type")
			if ct != "" && ct != "application/json" && !hasJSONPrefix(ct) {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Success: false,
					Message: "Content-Type must be application/json",
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func hasJSONPrefix(ct string) bool {
	const prefix = "application/json;"
	return len(ct) >= len(prefix) && ct[:len(prefix)] == prefix
}

// actingUserID resolves the numeric ID of the authenticated user from the
// request context. Writes a 401 response and returns false when absent.
func actingUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	s := middleware.UserIDFromContext(r.Context())
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Success: false,
			Message: "authentication required",
		})
		return 0, false
	}
	return id, true
}
