package rbac

// Permission tokens. The enumeration is closed: the resolver filters anything
// outside this set out of persisted assignments.
const (
	PermPropertiesRead    Permission = "properties:read"
	PermPropertiesCreate  Permission = "properties:create"
	PermPropertiesUpdate  Permission = "properties:update"
	PermPropertiesDelete  Permission = "properties:delete"
	PermPropertiesPublish Permission = "properties:publish"

	PermClientsRead   Permission = "clients:read"
	PermClientsCreate Permission = "clients:create"
	PermClientsUpdate Permission = "clients:update"
	PermClientsDelete Permission = "clients:delete"

	PermRequestsRead   Permission = "requests:read"
	PermRequestsUpdate Permission = "requests:update"
	PermRequestsDelete Permission = "requests:delete"

	PermAnalyticsRead   Permission = "analytics:read"
	PermAnalyticsExport Permission = "analytics:export"

	PermUsersRead   Permission = "users:read"
	PermUsersCreate Permission = "users:create"
	PermUsersUpdate Permission = "users:update"
	PermUsersDelete Permission = "users:delete"

	PermSystemSettings      Permission = "system:settings"
	PermSystemLogs          Permission = "system:logs"
	PermSystemNotifications Permission = "system:notifications"

	PermLeadsRead   Permission = "leads:read"
	PermLeadsCreate Permission = "leads:create"
	PermLeadsUpdate Permission = "leads:update"
	PermLeadsDelete Permission = "leads:delete"

	PermSalesRead   Permission = "sales:read"
	PermSalesManage Permission = "sales:manage"

	PermTasksRead   Permission = "tasks:read"
	PermTasksManage Permission = "tasks:manage"
)

var roleCatalog = map[Role]RoleInfo{
	RoleClient: {
		Role:        RoleClient,
		Name:        "Client",
		NameAr:      "عميل",
		Description: "Portal access to own requests and saved properties.",
		Level:       1,
		Color:       "#6b7280",
	},
	RoleAgent: {
		Role:        RoleAgent,
		Name:        "Agent",
		NameAr:      "وسيط عقاري",
		Description: "Manages property listings, clients and leads.",
		Level:       2,
		Color:       "#0ea5e9",
	},
	RoleAccountant: {
		Role:        RoleAccountant,
		Name:        "Accountant",
		NameAr:      "محاسب",
		Description: "Reads sales figures and analytics reports.",
		Level:       3,
		Color:       "#10b981",
	},
	RoleManager: {
		Role:        RoleManager,
		Name:        "Manager",
		NameAr:      "مدير مبيعات",
		Description: "Oversees the sales team, leads pipeline and requests.",
		Level:       4,
		Color:       "#f59e0b",
	},
	RoleAdmin: {
		Role:        RoleAdmin,
		Name:        "Admin",
		NameAr:      "مشرف",
		Description: "Administers users and the dashboard.",
		Level:       5,
		Color:       "#ef4444",
	},
	RoleSuperAdmin: {
		Role:        RoleSuperAdmin,
		Name:        "Super Admin",
		NameAr:      "مشرف عام",
		Description: "Full control including system settings.",
		Level:       6,
		Color:       "#8b5cf6",
	},
}

var categories = []Category{
	{Key: "properties", Label: "Properties", LabelAr: "العقارات", Permissions: []Permission{
		PermPropertiesRead, PermPropertiesCreate, PermPropertiesUpdate, PermPropertiesDelete, PermPropertiesPublish,
	}},
	{Key: "clients", Label: "Clients", LabelAr: "العملاء", Permissions: []Permission{
		PermClientsRead, PermClientsCreate, PermClientsUpdate, PermClientsDelete,
	}},
	{Key: "requests", Label: "Requests", LabelAr: "الطلبات", Permissions: []Permission{
		PermRequestsRead, PermRequestsUpdate, PermRequestsDelete,
	}},
	{Key: "analytics", Label: "Analytics", LabelAr: "التحليلات", Permissions: []Permission{
		PermAnalyticsRead, PermAnalyticsExport,
	}},
	{Key: "users", Label: "Users", LabelAr: "المستخدمون", Permissions: []Permission{
		PermUsersRead, PermUsersCreate, PermUsersUpdate, PermUsersDelete,
	}},
	{Key: "system", Label: "System", LabelAr: "النظام", Permissions: []Permission{
		PermSystemSettings, PermSystemLogs, PermSystemNotifications,
	}},
	{Key: "leads", Label: "Leads", LabelAr: "الفرص", Permissions: []Permission{
		PermLeadsRead, PermLeadsCreate, PermLeadsUpdate, PermLeadsDelete,
	}},
	{Key: "sales", Label: "Sales", LabelAr: "المبيعات", Permissions: []Permission{
		PermSalesRead, PermSalesManage,
	}},
	{Key: "tasks", Label: "Tasks", LabelAr: "المهام", Permissions: []Permission{
		PermTasksRead, PermTasksManage,
	}},
}

var permissionSet = buildPermissionSet()

func buildPermissionSet() map[Permission]struct{} {
	set := make(map[Permission]struct{})
	for _, cat := range categories {
		for _, p := range cat.Permissions {
			set[p] = struct{}{}
		}
	}
	return set
}

// RouteTable maps dashboard route keys to the permission required to open
// them. Admins pass every route regardless, see CanAccessRoute.
var RouteTable = map[string]Permission{
	"/dashboard":               PermAnalyticsRead,
	"/dashboard/properties":    PermPropertiesRead,
	"/dashboard/clients":       PermClientsRead,
	"/dashboard/leads":         PermLeadsRead,
	"/dashboard/requests":      PermRequestsRead,
	"/dashboard/analytics":     PermAnalyticsRead,
	"/dashboard/sales":         PermSalesRead,
	"/dashboard/users":         PermUsersRead,
	"/dashboard/settings":      PermSystemSettings,
	"/dashboard/notifications": PermSystemNotifications,
	"/dashboard/files":         PermPropertiesRead,
}

// Info returns display metadata for a role. Unknown roles fall back to the
// client tier so a corrupted profile never gains privilege.
func Info(role Role) RoleInfo {
	if info, ok := roleCatalog[role]; ok {
		return info
	}
	return roleCatalog[RoleClient]
}

// AllRoles lists the role catalog ordered by privilege level.
func AllRoles() []RoleInfo {
	out := make([]RoleInfo, 0, len(roleCatalog))
	for _, r := range []Role{RoleClient, RoleAgent, RoleAccountant, RoleManager, RoleAdmin, RoleSuperAdmin} {
		out = append(out, roleCatalog[r])
	}
	return out
}

// Categories returns the permission catalog grouped for presentation.
func Categories() []Category {
	return categories
}

// ValidRole reports whether the identifier is part of the role catalog.
func ValidRole(role Role) bool {
	_, ok := roleCatalog[role]
	return ok
}

// ValidPermission reports membership in the closed permission enumeration.
func ValidPermission(p Permission) bool {
	_, ok := permissionSet[p]
	return ok
}

// CanManage reports whether role a may manage role b. Strictly greater level
// wins; a role never manages itself.
func CanManage(a, b Role) bool {
	return Info(a).Level > Info(b).Level
}

// IsAdminRole reports whether the role is admin or super_admin.
func IsAdminRole(role Role) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// IsManagerRole reports whether the role is manager, admin or super_admin.
func IsManagerRole(role Role) bool {
	return role == RoleManager || IsAdminRole(role)
}
