package tokens

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"

	"github.com/escrowhub/escrowhub.go/ledger"
)

// ContextKey is where the authenticated caller identity is stored on the
// echo context by Middleware.
const ContextKey = "Caller"

type jwtCustomClaims struct {
	Principal string `json:"principal"`

	jwt.StandardClaims
}

// GenerateAccessToken mints a signed token for the given principal.
func GenerateAccessToken(secret []byte, expiry time.Duration, principal ledger.Identity) (string, error) {
	claims := &jwtCustomClaims{
		string(principal),
		jwt.StandardClaims{
			Subject:   string(principal),
			ExpiresAt: time.Now().Add(expiry).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	t, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return t, nil
}

// Middleware authenticates Bearer tokens and stores the caller identity
// under ContextKey for downstream handlers.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized()
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims := &jwtCustomClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.NewValidationError("unexpected signing method", jwt.ValidationErrorSignatureInvalid)
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				return unauthorized()
			}

			caller, err := ledger.ParseIdentity(claims.Principal)
			if err != nil {
				return unauthorized()
			}

			c.Set(ContextKey, caller)
			return next(c)
		}
	}
}

// CallerFromContext returns the identity put there by Middleware.
func CallerFromContext(c echo.Context) (ledger.Identity, bool) {
	caller, ok := c.Get(ContextKey).(ledger.Identity)
	return caller, ok
}

func unauthorized() error {
	return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
		"error":   true,
		"code":    1,
		"message": "bad auth",
	})
}
