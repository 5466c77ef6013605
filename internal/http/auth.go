package http

import (
	"net/http"

	applog "fintrack/internal/log"
	"fintrack/internal/session"
)

// authenticate verifies the bearer token, initialises the session and tears
// it down when the request ends.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := applog.FromContext(ctx)

		sess, err := s.verifier.Verify(session.BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			logger.DebugContext(ctx, "Token rejected", "path", r.URL.Path, "error", err)
			writeError(w, r, err)
			return
		}
		defer sess.Teardown()

		if err := sess.Init(ctx, s.svc.Store()); err != nil {
			logger.ErrorContext(ctx, "Session init failed", applog.FieldUserID, sess.UserID, "error", err)
			writeError(w, r, err)
			return
		}

		ctx = session.WithSession(ctx, sess)
		ctx = applog.NewContext(ctx, logger.With(applog.FieldUserID, sess.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user id. Routes behind authenticate
// always have one.
func currentUser(r *http.Request) string {
	if sess, ok := session.FromContext(r.Context()); ok {
		return sess.UserID
	}
	return ""
}
