package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{RoleTeacher, "question:create", true},
		{RoleTeacher, "quiz:submit", false},
		{RoleStudent, "quiz:submit", true},
		{RoleStudent, "question:delete_own", false},
		{"", "quiz:view", false},
		{"admin", "quiz:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q,%q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerWildcard(t *testing.T) {
	c := NewChecker(map[string][]string{"ops": {"quiz:*"}})
	if !c.Has("ops", "quiz:view") || c.Has("ops", "question:create") {
		t.Fatal("prefix wildcard mismatch")
	}
}

func TestRequire(t *testing.T) {
	called := false
	h := Require("question:create")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	cases := []struct {
		name     string
		p        *Principal
		accept   string
		wantCode int
		wantCall bool
	}{
		{"no session", nil, "", http.StatusUnauthorized, false},
		{"no session browser", nil, "text/html,application/xhtml+xml", http.StatusSeeOther, false},
		{"wrong role", &Principal{UserID: 2, Role: RoleStudent}, "", http.StatusForbidden, false},
		{"teacher", &Principal{UserID: 1, Role: RoleTeacher}, "", http.StatusOK, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest(http.MethodPost, "/teacher/questions", nil)
			if tc.accept != "" {
				req.Header.Set("Accept", tc.accept)
			}
			if tc.p != nil {
				req = req.WithContext(WithPrincipal(req.Context(), *tc.p))
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", rr.Code, tc.wantCode)
			}
			if called != tc.wantCall {
				t.Errorf("handler called = %v, want %v", called, tc.wantCall)
			}
		})
	}
}

func TestPrincipalIs(t *testing.T) {
	if (Principal{Role: RoleTeacher}).Is(RoleTeacher) {
		t.Error("principal without user id must not match")
	}
	if !(Principal{UserID: 3, Role: RoleStudent}).Is(RoleStudent) {
		t.Error("student principal should match")
	}
}
