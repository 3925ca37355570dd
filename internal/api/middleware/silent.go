package middleware

import (
	"errors"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SilentLogger logs requests but ignores "broken pipe" errors caused by client
// disconnects, and stays quiet for the given polling paths unless they fail.
func SilentLogger(quiet ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		skip[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		for _, e := range c.Errors {
			if isClientGone(e.Err) {
				return
			}
		}

		status := c.Writer.Status()
		if skip[path] && status < 400 {
			return
		}

		if query != "" {
			path = path + "?" + query
		}
		log.Printf("[GIN] %3d | %13v | %15s | %-7s %#v",
			status,
			time.Since(start),
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

func isClientGone(err error) bool {
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
