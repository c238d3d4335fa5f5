package activate

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const cookieName = "checkout_session"

// New returns the POST /api/sessions handler. Session activation is
// fire-and-forget on the client side, so the handler never fails the
// caller: it sets the session cookie and answers 204.
func New(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.session.activate.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if _, err := r.Cookie(cookieName); err == nil {
			// Session already established; renewing it is harmless but noisy.
			w.WriteHeader(http.StatusNoContent)

			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    uuid.NewString(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		log.Info("session activated")

		w.WriteHeader(http.StatusNoContent)
	}
}
