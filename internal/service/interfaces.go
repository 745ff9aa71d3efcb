package service

//go:generate mockgen -source=interfaces.go -destination=gomock/rbac_authorizer_mock.go -package=gomock

// RBACAuthorizer decides whether a permission set grants a required permission.
type RBACAuthorizer interface {
	HasPermission(permissions []string, required string) bool
}
