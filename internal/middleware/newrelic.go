package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelic wraps each request in a New Relic transaction named after the
// chi route pattern. A nil app disables it.
func NewRelic(app *newrelic.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if app == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txn := app.StartTransaction(r.Method + " " + r.URL.Path)
			defer func() {
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					if pattern := rctx.RoutePattern(); pattern != "" {
						txn.SetName(r.Method + " " + pattern)
					}
				}
				txn.End()
			}()

			txn.SetWebRequestHTTP(r)
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				txn.AddAttribute("request.id", reqID)
			}
			w = txn.SetWebResponse(w)

			next.ServeHTTP(w, newrelic.RequestWithTransactionContext(r, txn))
		})
	}
}
