package service

import "strings"

const (
	PermissionProductsWrite  = "products:write"
	PermissionProductsDelete = "products:delete"
)

type RBACService struct{}

func NewRBACService() *RBACService { return &RBACService{} }

// HasPermission matches exact grants and resource wildcards such as "products:*".
func (s *RBACService) HasPermission(permissions []string, required string) bool {
	resource, _, _ := strings.Cut(required, ":")
	for _, p := range permissions {
		p = strings.TrimSpace(p)
		if p == required || p == "*" || p == resource+":*" {
			return true
		}
	}
	return false
}
