package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// IdentityFromContext returns the org and user ids of the request's
// session. Either may be empty when the login service did not set it.
func IdentityFromContext(ctx context.Context) (orgID, userID string) {
	sess := SessionFromContext(ctx)
	if sess == nil {
		return "", ""
	}
	return sess.OrgID(), sess.User()
}
