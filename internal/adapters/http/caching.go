package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets a default Cache-Control header on GET responses.
// Analysis results change only on reload, so data endpoints get short TTLs.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.Get(fiber.HeaderCacheControl) != "" {
			return err
		}
		if ttl := cacheControlFor(c.Path()); ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

func cacheControlFor(path string) string {
	switch {
	case path == "/metrics":
		return "no-cache"
	case path == "/v1/health" || path == "/v1/ready" || path == "/v1/summary":
		return "public, max-age=10"
	case strings.HasPrefix(path, "/v1/stations"):
		return "public, max-age=300"
	case strings.HasPrefix(path, "/v1/report"),
		strings.HasPrefix(path, "/v1/distributions"),
		strings.HasPrefix(path, "/v1/trips"):
		return "public, max-age=60"
	case strings.HasPrefix(path, "/v1/"):
		return "public, max-age=30"
	}
	return ""
}
