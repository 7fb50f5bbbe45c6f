package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	apperrors "github.com/syncthingtray/syncthingtray/internal/errors"
)

// ClientHeader must be present on state-changing requests. Browsers cannot attach it to a
// cross-origin request without a CORS preflight, which the control API never approves.
const ClientHeader = "X-SyncthingTray"

// LoopbackOnly rejects requests that do not come from the local machine. The peer address, the
// Host header and, when present, the Origin header must all be loopback, so neither remote hosts
// nor web pages reached through DNS rebinding or cross-origin requests get an answer.
func LoopbackOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !loopbackAddr(c.Request.RemoteAddr) {
			forbid(c, "control API only accepts local connections", "remote", c.Request.RemoteAddr)
			return
		}
		if !loopbackHost(c.Request.Host) {
			forbid(c, "control API only accepts loopback host names", "host", c.Request.Host)
			return
		}
		if origin := c.Request.Header.Get("Origin"); origin != "" && !loopbackOrigin(origin) {
			forbid(c, "control API does not accept cross-origin requests", "origin", origin)
			return
		}
		c.Next()
	}
}

// RequireClientHeader rejects state-changing requests that lack ClientHeader.
func RequireClientHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead:
		default:
			if strings.TrimSpace(c.GetHeader(ClientHeader)) == "" {
				forbid(c, "missing "+ClientHeader+" header", "method", c.Request.Method)
				return
			}
		}
		c.Next()
	}
}

func forbid(c *gin.Context, msg, field, value string) {
	log.WithField(field, value).Warn("control API: rejected request: " + msg)
	appErr := apperrors.New(apperrors.KindConfig, msg, nil)
	c.Data(http.StatusForbidden, "application/json", appErr.ToJSON())
	c.Abort()
}

func loopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func loopbackHost(hostport string) bool {
	host := strings.TrimSpace(hostport)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func loopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return loopbackHost(u.Host)
}
