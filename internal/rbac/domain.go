package rbac

// Role is a named privilege tier. Every principal holds exactly one role.
type Role string

// Roles ordered by privilege level.
const (
	RoleClient     Role = "client"
	RoleAgent      Role = "agent"
	RoleAccountant Role = "accountant"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Permission is a fine-grained capability token of the form category:action.
type Permission string

// RoleInfo carries display metadata for a role.
type RoleInfo struct {
	Role        Role   `json:"role"`
	Name        string `json:"name"`
	NameAr      string `json:"name_ar"`
	Description string `json:"description"`
	Level       int    `json:"level"`
	Color       string `json:"color"`
}

// Category groups permissions for presentation in the dashboard.
type Category struct {
	Key         string       `json:"key"`
	Label       string       `json:"label"`
	LabelAr     string       `json:"label_ar"`
	Permissions []Permission `json:"permissions"`
}

// Assignment ties a role to its granted permission set. It is the persisted
// source of truth read on every permission check.
type Assignment struct {
	Role        Role
	Permissions []Permission
}
