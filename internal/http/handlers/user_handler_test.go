package handlers

import (
	"net/http"
	"slices"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestUsers_CreateGetUpdate(t *testing.T) {
	env := newEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/users", gin.H{"username": "  JDoe ", "roles": []string{"manager"}})
	expectStatus(t, w, http.StatusCreated)
	u := decode[UserResponse](t, w)
	if u.Username != "jdoe" || !u.Enabled || !slices.Equal(u.Roles, []string{"MANAGER"}) {
		t.Fatalf("user = %+v", u)
	}
	if loc := w.Header().Get("Location"); loc != "/api/v1/users/1" {
		t.Fatalf("Location = %q", loc)
	}

	w = env.do(t, http.MethodPost, "/api/v1/users", gin.H{"username": "JDOE"})
	expectStatus(t, w, http.StatusBadRequest)
	if er := decode[ErrorResponse](t, w); er.Violations[0].Field != "username" {
		t.Fatalf("violations = %+v", er.Violations)
	}

	w = env.do(t, http.MethodPut, "/api/v1/users/1", gin.H{"enabled": false, "locked": true, "roles": []string{"ADMIN", "USER"}})
	expectStatus(t, w, http.StatusOK)
	u = decode[UserResponse](t, w)
	if u.Enabled || !u.Locked || len(u.Roles) != 2 {
		t.Fatalf("updated = %+v", u)
	}

	w = env.do(t, http.MethodGet, "/api/v1/users/1", nil)
	expectStatus(t, w, http.StatusOK)
	got := decode[UserResponse](t, w)
	if !slices.Contains(got.Roles, "ADMIN") || !slices.Contains(got.Roles, "USER") || slices.Contains(got.Roles, "MANAGER") {
		t.Fatalf("roles = %v", got.Roles)
	}
}

func TestUsers_Rejections(t *testing.T) {
	env := newEnv(t)

	cases := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"short username", gin.H{"username": "ab"}, "username"},
		{"bad characters", gin.H{"username": "j doe"}, "username"},
		{"unknown role", gin.H{"username": "jdoe", "roles": []string{"superuser"}}, "roles"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/users", tc.body)
			expectStatus(t, w, http.StatusBadRequest)
			if er := decode[ErrorResponse](t, w); er.Violations[0].Field != tc.field {
				t.Fatalf("violations = %+v", er.Violations)
			}
		})
	}

	expectStatus(t, env.do(t, http.MethodGet, "/api/v1/users/9", nil), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodPut, "/api/v1/users/9", gin.H{}), http.StatusNotFound)
}

func TestUsers_ListDefaultsToUserRole(t *testing.T) {
	env := newEnv(t)
	for _, name := range []string{"alice", "bob", "carol"} {
		expectStatus(t, env.do(t, http.MethodPost, "/api/v1/users", gin.H{"username": name}), http.StatusCreated)
	}

	w := env.do(t, http.MethodGet, "/api/v1/users?page=2&page_size=2", nil)
	expectStatus(t, w, http.StatusOK)
	list := decode[ListUsersResponse](t, w)
	if list.Pagination.Total != 3 || len(list.Users) != 1 || list.Users[0].Username != "carol" {
		t.Fatalf("list = %+v", list)
	}
	if !slices.Equal(list.Users[0].Roles, []string{"USER"}) {
		t.Fatalf("roles = %v", list.Users[0].Roles)
	}
}
