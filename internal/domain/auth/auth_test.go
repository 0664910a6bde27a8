package auth

import (
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckPassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("CheckPassword with right password: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Error("CheckPassword accepted wrong password")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	const secret = "unit-test-secret"
	claims := Claims{UserID: "u1", TenantID: "t1", RoleID: "r1", RoleName: RoleManager, SessionID: "s1"}

	token, err := GenerateToken(secret, claims, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed.UserID != "u1" || parsed.TenantID != "t1" || parsed.RoleName != RoleManager || parsed.SessionID != "s1" {
		t.Errorf("claims = %+v", parsed)
	}

	if _, err := ParseToken("other-secret", token); err == nil {
		t.Error("token parsed with wrong secret")
	}

	expired, _ := GenerateToken(secret, claims, -time.Minute)
	if _, err := ParseToken(secret, expired); err == nil {
		t.Error("expired token accepted")
	}
}

func TestHashTokenStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Error("hash not deterministic")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Error("distinct inputs collide")
	}
}

func TestRolePermissions(t *testing.T) {
	for _, role := range []string{RoleEmployee, RoleManager, RoleHR, RoleAdmin, RoleSystemAdmin} {
		if len(RolePermissions[role]) == 0 {
			t.Errorf("role %s has no permissions", role)
		}
	}
	has := func(role, perm string) bool {
		for _, p := range RolePermissions[role] {
			if p == perm {
				return true
			}
		}
		return false
	}
	if has(RoleEmployee, PermLeaveApprove) {
		t.Error("employees must not approve leave")
	}
	if !has(RoleManager, PermLeaveApprove) {
		t.Error("managers approve leave")
	}
	if has(RoleManager, PermLeaveAllocate) {
		t.Error("managers must not run allocation")
	}
	if CanResetOthers(RoleEmployee) {
		t.Error("employees reset only themselves")
	}
	if !CanResetOthers(RoleHR) {
		t.Error("hr resets others")
	}
}
