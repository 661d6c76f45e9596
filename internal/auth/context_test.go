// ABOUTME: Unit tests for auth context propagation
// ABOUTME: Tests WithAuth/FromContext round trips and role checks

package auth

import (
	"context"
	"testing"
)

func TestWithAuth_FromContext_RoundTrip(t *testing.T) {
	authCtx := &AuthContext{Role: RoleServiceRole}

	ctx := WithAuth(context.Background(), authCtx)
	got := FromContext(ctx)

	if got == nil {
		t.Fatal("FromContext() = nil, want AuthContext")
	}
	if got.Role != RoleServiceRole {
		t.Errorf("Role = %q, want %q", got.Role, RoleServiceRole)
	}
}

func TestFromContext_Missing(t *testing.T) {
	got := FromContext(context.Background())
	if got != nil {
		t.Errorf("FromContext() = %v, want nil", got)
	}
}

func TestMustFromContext_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustFromContext() should have panicked")
		}
	}()
	MustFromContext(context.Background())
}

func TestAuthContext_CanWrite(t *testing.T) {
	tests := []struct {
		name string
		role string
		want bool
	}{
		{"service_role can write", RoleServiceRole, true},
		{"anon cannot write", RoleAnon, false},
		{"empty role cannot write", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &AuthContext{Role: tt.role}
			if got := a.CanWrite(); got != tt.want {
				t.Errorf("CanWrite() = %v, want %v", got, tt.want)
			}
		})
	}
}
