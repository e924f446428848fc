package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/services"
)

const (
	ctxKeyActor = "actor"
	ctxKeyRoles = "roles"

	// HeaderUserID and HeaderUserRoles carry the identity when development
	// headers are enabled and no JWT secret is configured.
	HeaderUserID    = "X-User-ID"
	HeaderUserRoles = "X-User-Roles"

	devActor = "dev"
)

// Claims is the expected JWT payload: the subject is the actor recorded on
// audit fields, roles gate administrative routes.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthOptions configures Authenticate.
type AuthOptions struct {
	// Secret is the HS256 key. When set, a bearer token is always required.
	Secret []byte
	// DevHeaders trusts X-User-ID and X-User-Roles as sent when Secret is
	// empty. With neither, every request is refused.
	DevHeaders bool
	// Leeway tolerates clock skew on exp/nbf.
	Leeway time.Duration
}

// Authenticate resolves the caller identity, stores it in the Gin context
// and attaches it to the request context for the services layer.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(opts.Leeway),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		var (
			sub   string
			roles []domain.RoleName
		)
		switch {
		case len(opts.Secret) == 0 && !opts.DevHeaders:
			abort(c, http.StatusUnauthorized, "unauthorized", "authentication is not configured")
			return
		case len(opts.Secret) == 0:
			sub = strings.TrimSpace(c.GetHeader(HeaderUserID))
			if sub == "" {
				sub = devActor
			}
			roles = parseRoles(strings.Split(c.GetHeader(HeaderUserRoles), ","))
		default:
			raw, ok := bearer(c.GetHeader("Authorization"))
			if !ok {
				c.Header("WWW-Authenticate", `Bearer realm="api"`)
				abort(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			var claims Claims
			_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return opts.Secret, nil })
			if err != nil || claims.Subject == "" {
				msg := "invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "token expired"
				}
				c.Header("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				abort(c, http.StatusUnauthorized, "unauthorized", msg)
				return
			}
			sub = claims.Subject
			roles = parseRoles(claims.Roles)
		}
		if len(roles) == 0 {
			roles = []domain.RoleName{domain.RoleUser}
		}

		c.Set(ctxKeyActor, sub)
		c.Set(ctxKeyRoles, roles)

		l := LoggerFrom(c).With().Str("actor", sub).Logger()
		c.Set(loggerKey, &l)
		ctx := services.WithActor(c.Request.Context(), sub)
		c.Request = c.Request.WithContext(l.WithContext(ctx))
		c.Next()
	}
}

// RequireRole lets the request through when the caller holds any of roles.
// ADMIN passes every check.
func RequireRole(roles ...domain.RoleName) gin.HandlerFunc {
	return func(c *gin.Context) {
		held := RolesFrom(c)
		if slices.Contains(held, domain.RoleAdmin) || slices.ContainsFunc(held, func(r domain.RoleName) bool {
			return slices.Contains(roles, r)
		}) {
			c.Next()
			return
		}
		abort(c, http.StatusForbidden, "forbidden", "insufficient role")
	}
}

// ActorFrom returns the authenticated subject, or "" before Authenticate.
func ActorFrom(c *gin.Context) string {
	v, _ := c.Get(ctxKeyActor)
	return asString(v)
}

// RolesFrom returns the caller's roles.
func RolesFrom(c *gin.Context) []domain.RoleName {
	v, _ := c.Get(ctxKeyRoles)
	r, _ := v.([]domain.RoleName)
	return r
}

func bearer(h string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func parseRoles(in []string) []domain.RoleName {
	var out []domain.RoleName
	for _, r := range in {
		name := domain.RoleName(strings.ToUpper(strings.TrimSpace(r)))
		if name.Valid() && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
