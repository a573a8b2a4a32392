package rbac

import "testing"

func TestRoleLevelsStrictlyOrdered(t *testing.T) {
	roles := AllRoles()
	if len(roles) != 6 {
		t.Fatalf("expected 6 roles, got %d", len(roles))
	}
	for i := 1; i < len(roles); i++ {
		if roles[i].Level <= roles[i-1].Level {
			t.Fatalf("role %s level %d not above %s level %d", roles[i].Role, roles[i].Level, roles[i-1].Role, roles[i-1].Level)
		}
	}
	if roles[0].Role != RoleClient || roles[0].Level != 1 {
		t.Fatalf("lowest tier must be client at level 1, got %s/%d", roles[0].Role, roles[0].Level)
	}
	if roles[len(roles)-1].Role != RoleSuperAdmin || roles[len(roles)-1].Level != 6 {
		t.Fatalf("highest tier must be super_admin at level 6")
	}
}

func TestCanManageMatchesLevelOrder(t *testing.T) {
	all := AllRoles()
	for _, a := range all {
		for _, b := range all {
			want := a.Level > b.Level
			if got := CanManage(a.Role, b.Role); got != want {
				t.Errorf("CanManage(%s,%s) = %v, want %v", a.Role, b.Role, got, want)
			}
		}
		if CanManage(a.Role, a.Role) {
			t.Errorf("CanManage(%s,%s) must be false", a.Role, a.Role)
		}
	}
}

func TestPermissionCatalogIsClosedAt29(t *testing.T) {
	seen := make(map[Permission]struct{})
	for _, cat := range Categories() {
		for _, p := range cat.Permissions {
			if _, dup := seen[p]; dup {
				t.Fatalf("permission %s listed twice", p)
			}
			seen[p] = struct{}{}
		}
	}
	if len(seen) != 29 {
		t.Fatalf("expected 29 permissions, got %d", len(seen))
	}
	for p := range seen {
		if !ValidPermission(p) {
			t.Fatalf("catalog permission %s not valid", p)
		}
	}
	if ValidPermission("properties:fly") {
		t.Fatal("unknown token accepted")
	}
}

func TestUnknownRoleFallsBackToClient(t *testing.T) {
	info := Info(Role("ghost"))
	if info.Role != RoleClient {
		t.Fatalf("unknown role resolved to %s, want client", info.Role)
	}
	if ValidRole("ghost") {
		t.Fatal("ghost must not be a valid role")
	}
}
