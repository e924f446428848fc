package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/go-policy-admin/internal/domain"
	"github.com/tbourn/go-policy-admin/internal/services"
)

var testSecret = []byte("test-secret")

func signed(t *testing.T, sub string, roles []string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func authRouter(opts AuthOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Authenticate(opts))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"actor":   ActorFrom(c),
			"service": services.Actor(c.Request.Context()),
			"roles":   RolesFrom(c),
		})
	})
	r.GET("/admin", RequireRole(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/managers", RequireRole(domain.RoleManager), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuthenticate_JWT(t *testing.T) {
	r := authRouter(AuthOptions{Secret: testSecret})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, "alice", nil, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"no subject", "Bearer " + signed(t, "", nil, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"valid", "Bearer " + signed(t, "alice", []string{"manager"}, time.Now().Add(time.Hour)), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if tc.status == http.StatusOK {
				want := `{"actor":"alice","roles":["MANAGER"],"service":"alice"}`
				if w.Body.String() != want {
					t.Fatalf("body = %s", w.Body.String())
				}
			}
		})
	}
}

func TestAuthenticate_RejectsOtherAlgorithms(t *testing.T) {
	r := authRouter(AuthOptions{Secret: testSecret})
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "mallory", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	s, _ := tok.SignedString(testSecret)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+s)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthenticate_DevHeaders(t *testing.T) {
	r := authRouter(AuthOptions{DevHeaders: true})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if want := `{"actor":"dev","roles":["USER"],"service":"dev"}`; w.Body.String() != want {
		t.Fatalf("default identity = %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderUserID, "bob")
	req.Header.Set(HeaderUserRoles, "admin, bogus ,admin")
	r.ServeHTTP(w, req)
	if want := `{"actor":"bob","roles":["ADMIN"],"service":"bob"}`; w.Body.String() != want {
		t.Fatalf("header identity = %s", w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	r := authRouter(AuthOptions{DevHeaders: true})
	cases := []struct {
		path, roles string
		status      int
	}{
		{"/admin", "USER", http.StatusForbidden},
		{"/admin", "ADMIN", http.StatusNoContent},
		{"/managers", "USER", http.StatusForbidden},
		{"/managers", "MANAGER", http.StatusNoContent},
		{"/managers", "ADMIN", http.StatusNoContent},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set(HeaderUserRoles, tc.roles)
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Errorf("%s as %s: status = %d, want %d", tc.path, tc.roles, w.Code, tc.status)
		}
	}
}

func TestAuthenticate_Unconfigured_FailsClosed(t *testing.T) {
	r := authRouter(AuthOptions{})
	for _, path := range []string{"/whoami", "/admin"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(HeaderUserID, "mallory")
		req.Header.Set(HeaderUserRoles, "ADMIN")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", path, w.Code)
		}
	}
}

func TestAuthenticate_SecretIgnoresDevHeaders(t *testing.T) {
	r := authRouter(AuthOptions{Secret: testSecret, DevHeaders: true})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(HeaderUserRoles, "ADMIN")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
