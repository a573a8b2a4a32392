package rbac

// Requirement describes what a caller must hold to pass the guard. Any
// combination of a single permission, a permission list with an ALL/ANY
// combinator and role criteria may be supplied; role lists always use ANY
// semantics. When both permission and role criteria are present, both must
// hold.
type Requirement struct {
	Permission  Permission
	Permissions []Permission
	RequireAll  bool
	Role        Role
	Roles       []Role
}

// Policy selects the guard behaviour when a requirement is empty. The
// historical behaviour is open-by-default: callers must specify at least one
// criterion to restrict access. DenyByDefault is the stricter variant for
// deployments that prefer to mark public surfaces explicitly.
type Policy struct {
	DenyByDefault bool
}

// Allow evaluates the requirement against a principal's granted permissions
// and role. The default policy grants access when the requirement is empty.
func Allow(granted []Permission, role Role, req Requirement) bool {
	return AllowWithPolicy(granted, role, req, Policy{})
}

// AllowWithPolicy evaluates the requirement under an explicit empty-requirement
// policy.
func AllowWithPolicy(granted []Permission, role Role, req Requirement, policy Policy) bool {
	perms := req.permissionCriteria()
	hasPermCriteria := len(perms) > 0
	hasRoleCriteria := req.Role != "" || len(req.Roles) > 0

	if !hasPermCriteria && !hasRoleCriteria {
		return !policy.DenyByDefault
	}

	set := make(map[Permission]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}

	permOK := true
	if hasPermCriteria {
		if req.RequireAll {
			for _, p := range perms {
				if _, ok := set[p]; !ok {
					permOK = false
					break
				}
			}
		} else {
			permOK = false
			for _, p := range perms {
				if _, ok := set[p]; ok {
					permOK = true
					break
				}
			}
		}
	}
	if !permOK {
		return false
	}

	if hasRoleCriteria {
		return roleMatches(role, req)
	}
	return true
}

func (r Requirement) permissionCriteria() []Permission {
	perms := make([]Permission, 0, len(r.Permissions)+1)
	if r.Permission != "" {
		perms = append(perms, r.Permission)
	}
	perms = append(perms, r.Permissions...)
	return perms
}

func roleMatches(role Role, req Requirement) bool {
	if req.Role != "" && role == req.Role {
		return true
	}
	for _, r := range req.Roles {
		if role == r {
			return true
		}
	}
	return false
}

// CanAccessRoute answers whether a principal with the given permissions and
// role may open a dashboard route. Unknown routes are open: the route table
// only lists restricted pages. Admins pass every listed route even without
// the mapped permission.
func CanAccessRoute(routeKey string, granted []Permission, role Role) bool {
	required, ok := RouteTable[routeKey]
	if !ok {
		return true
	}
	if IsAdminRole(role) {
		return true
	}
	for _, p := range granted {
		if p == required {
			return true
		}
	}
	return false
}
