// Package api implements the sitedesk REST API using chi.
package api

import (
	"log/slog"
	"net"
	"net/http"
)

// LocalOnly returns middleware that rejects requests whose peer address is
// not a loopback address. With allowRemote set every request passes through.
// The check uses the connection address and ignores forwarding headers.
func LocalOnly(allowRemote bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowRemote || isLoopback(r.RemoteAddr) {
				next.ServeHTTP(w, r)
				return
			}
			slog.Warn("rejected non-local request", slog.String("remote_addr", r.RemoteAddr))
			writeJSON(w, http.StatusForbidden, errorBody("admin API is local-only"))
		})
	}
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
