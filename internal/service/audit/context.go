package audit

import "context"

type clientInfoKey struct{}

// ClientInfo is the network identity of the request behind a change.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// WithClientInfo stores client details for later audit entries.
func WithClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, ClientInfo{IP: ip, UserAgent: userAgent})
}

// ClientInfoFrom retrieves client details stored by the HTTP layer.
func ClientInfoFrom(ctx context.Context) (ClientInfo, bool) {
	info, ok := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info, ok
}
