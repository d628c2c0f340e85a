package middleware

import (
	"errors"
	"time"

	"mailquill/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ClientIDKey is the Locals key holding the caller's client ID.
const ClientIDKey = "client_id"

// IdentityConfig controls the client identity cookie.
type IdentityConfig struct {
	Secret     []byte
	CookieName string
	Secure     bool
	MaxAge     time.Duration
	Issuer     string
}

// DefaultIdentityConfig returns the identity settings for secret.
func DefaultIdentityConfig(secret []byte) IdentityConfig {
	return IdentityConfig{
		Secret:     secret,
		CookieName: "mq_client",
		MaxAge:     365 * 24 * time.Hour,
		Issuer:     "mailquill",
	}
}

// ClientIdentity gives every browser a stable, signed client ID. The ID keys
// the browser's history and preferences; there are no user accounts.
func ClientIdentity(cfg IdentityConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientID, err := ParseClientToken(cfg, c.Cookies(cfg.CookieName))
		if err != nil {
			clientID = uuid.NewString()
			token, err := IssueClientToken(cfg, clientID, time.Now())
			if err != nil {
				return utils.InternalServerError("Failed to issue client identity", err)
			}
			c.Cookie(&fiber.Cookie{
				Name:     cfg.CookieName,
				Value:    token,
				MaxAge:   int(cfg.MaxAge.Seconds()),
				HTTPOnly: true,
				SameSite: "Lax",
				Secure:   cfg.Secure,
			})
			utils.Log.Debug("Issued client identity %s", clientID)
		}

		c.Locals(ClientIDKey, clientID)
		return c.Next()
	}
}

// IssueClientToken signs a token naming clientID.
func IssueClientToken(cfg IdentityConfig, clientID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.MaxAge)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
}

// ParseClientToken validates token and returns the client ID it names.
func ParseClientToken(cfg IdentityConfig, token string) (string, error) {
	if token == "" {
		return "", errors.New("no client token")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("client token has no valid subject")
	}
	return claims.Subject, nil
}

// ClientID returns the client ID set by ClientIdentity.
func ClientID(c *fiber.Ctx) string {
	id, _ := c.Locals(ClientIDKey).(string)
	return id
}
