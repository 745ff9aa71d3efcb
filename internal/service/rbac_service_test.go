package service

import "testing"

func TestRBACPermissionEvaluation(t *testing.T) {
	svc := NewRBACService()
	perms := []string{"products:write", "categories:read"}
	if !svc.HasPermission(perms, PermissionProductsWrite) {
		t.Fatal("expected products:write")
	}
	if svc.HasPermission(perms, PermissionProductsDelete) {
		t.Fatal("did not expect products:delete")
	}
	if !svc.HasPermission([]string{"products:*"}, PermissionProductsDelete) {
		t.Fatal("expected resource wildcard to grant products:delete")
	}
	if svc.HasPermission(nil, PermissionProductsWrite) {
		t.Fatal("expected empty permission set to deny")
	}
}
