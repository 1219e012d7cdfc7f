package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/event-board/internal/model"
)

// Session is the resolved caller of one request. The zero value is an
// anonymous caller. Interceptors return new values instead of mutating the
// one they were given.
type Session struct {
	Identity *model.Identity
	Admin    bool
}

// Authenticated reports whether an identity was resolved.
func (s Session) Authenticated() bool {
	return s.Identity != nil && s.Identity.Sub != ""
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession returns ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session stored by the Resolver, or an
// anonymous session.
func SessionFromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey).(Session)
	return s
}

// Interceptor is one step of identity resolution. It returns the session to
// hand on and whether resolution is finished. Returning done=true stops the
// chain; later interceptors do not run.
type Interceptor func(w http.ResponseWriter, r *http.Request, in Session) (out Session, done bool)

// Resolve runs the interceptors in order once per request and stores the
// final Session in the request context. It never rejects a request;
// handlers decide what an anonymous caller may do.
func Resolve(interceptors ...Interceptor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var s Session
			for _, intercept := range interceptors {
				var done bool
				s, done = intercept(w, r, s)
				if done {
					break
				}
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// AdminSession resolves a signed admin_userinfo cookie. The admin flag is
// set only when a valid admin marker cookie for the same subject is also
// present.
func AdminSession(codec *SessionCodec) Interceptor {
	return func(w http.ResponseWriter, r *http.Request, in Session) (Session, bool) {
		c, err := r.Cookie(CookieAdminUserinfo)
		if err != nil {
			return in, false
		}
		id, err := codec.ParseAdminUserinfo(c.Value)
		if err != nil {
			return in, false
		}

		admin := false
		if m, err := r.Cookie(CookieAdmin); err == nil {
			if sub, err := codec.ParseAdmin(m.Value); err == nil && sub == id.Sub {
				admin = true
			}
		}
		return Session{Identity: id, Admin: admin}, true
	}
}

// ProviderSession resolves a signed access_token cookie through verifier.
// Any failure clears the cookie and leaves the caller anonymous.
func ProviderSession(codec *SessionCodec, verifier Verifier, cookies CookieConfig, logger *slog.Logger) Interceptor {
	return func(w http.ResponseWriter, r *http.Request, in Session) (Session, bool) {
		c, err := r.Cookie(CookieAccessToken)
		if err != nil {
			return in, false
		}

		token, err := codec.ParseAccessToken(c.Value)
		if err != nil {
			logger.Debug("discarding access token cookie", "error", err)
			cookies.Clear(w, CookieAccessToken)
			return Session{}, true
		}

		id, err := verifier.Verify(r.Context(), token)
		if err != nil {
			logger.Info("identity provider rejected session", "error", err)
			cookies.Clear(w, CookieAccessToken)
			return Session{}, true
		}
		return Session{Identity: id}, true
	}
}
