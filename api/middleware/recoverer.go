package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shambadirect/storefront/api/responses"
	pkgerrors "github.com/shambadirect/storefront/pkg/errors"
	"github.com/shambadirect/storefront/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. http.ErrAbortHandler is
// re-raised so net/http can drop the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				ctx := r.Context()
				if logg != nil {
					logg.Error(logg.WithField(ctx, "panic", fmt.Sprint(rec)), "panic.recovered", nil)
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeInternal, "handler panicked"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
