package middleware

import (
	"math"
	"strconv"
	"time"

	"mailquill/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimiter allows requests per duration for each caller, keyed by client
// ID when ClientIdentity ran first and by IP otherwise. Idle callers are
// forgotten after ten minutes.
func RateLimiter(requests int, duration time.Duration) fiber.Handler {
	limiters := utils.NewMemoryCache[*rate.Limiter](10*time.Minute, nil)
	return rateLimiter(requests, duration, limiters)
}

func rateLimiter(requests int, duration time.Duration, limiters *utils.MemoryCache[*rate.Limiter]) fiber.Handler {
	interval := duration / time.Duration(requests)
	every := rate.Every(interval)
	retryAfter := retryAfterSeconds(interval)

	return func(c *fiber.Ctx) error {
		key := ClientID(c)
		if key == "" {
			key = "ip:" + c.IP()
		}

		limiter, _ := limiters.GetOrCreate(key, func() (*rate.Limiter, error) {
			return rate.NewLimiter(every, requests), nil
		})

		if !limiter.Allow() {
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return utils.TooManyRequestsError("Rate limit exceeded. Please try again later.", nil)
		}

		return c.Next()
	}
}

// retryAfterSeconds is the wait until the next token, rounded up to whole
// seconds and never less than one.
func retryAfterSeconds(interval time.Duration) string {
	secs := int(math.Ceil(interval.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
