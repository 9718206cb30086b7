package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/atim-dev/atim/internal/logger"
)

// requestLogger writes one debug line per request through the application logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			logger.Debug("%s %s -> %d (%d bytes) in %v [%s]",
				r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start),
				middleware.GetReqID(r.Context()))
		}()

		next.ServeHTTP(ww, r)
	})
}
