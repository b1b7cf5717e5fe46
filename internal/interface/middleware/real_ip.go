package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP stores the client IP under "real_ip". Proxy headers are honoured
// only when trustHeaders is set, in this order: CF-Connecting-IP,
// X-Real-IP, then the left-most X-Forwarded-For hop. Otherwise c.ClientIP().
func RealIP(trustHeaders bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ""
		if trustHeaders {
			ip = headerIP(c)
		}
		if ip == "" {
			ip = c.ClientIP()
		}
		c.Set("real_ip", ip)
		c.Next()
	}
}

func headerIP(c *gin.Context) string {
	candidates := []string{
		c.GetHeader("CF-Connecting-IP"),
		c.GetHeader("X-Real-IP"),
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		candidates = append(candidates, strings.SplitN(xff, ",", 2)[0])
	}
	for _, raw := range candidates {
		if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
			return ip.String()
		}
	}
	return ""
}
