package rbac

import (
	"testing"
)

func TestHighestRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  string
	}{
		{name: "пустой набор", roles: nil, want: ""},
		{name: "один admin", roles: []string{RoleAdmin}, want: RoleAdmin},
		{name: "один user", roles: []string{RoleUser}, want: RoleUser},
		{name: "manager + user", roles: []string{RoleManager, RoleUser}, want: RoleManager},
		{name: "user + admin + manager", roles: []string{RoleUser, RoleAdmin, RoleManager}, want: RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HighestRole(tt.roles)
			if got != tt.want {
				t.Errorf("HighestRole(%v) = %q, хотели %q", tt.roles, got, tt.want)
			}
		})
	}
}

func TestMapGroupsToRole(t *testing.T) {
	adminGroups := []string{"docvault-admins"}
	managerGroups := []string{"docvault-managers"}

	tests := []struct {
		name   string
		groups []string
		want   string
	}{
		{
			name:   "группа admins -> admin",
			groups: []string{"docvault-admins"},
			want:   RoleAdmin,
		},
		{
			name:   "группа managers -> manager",
			groups: []string{"docvault-managers"},
			want:   RoleManager,
		},
		{
			name:   "обе группы -> admin (max)",
			groups: []string{"docvault-managers", "docvault-admins"},
			want:   RoleAdmin,
		},
		{
			name:   "нет совпадений -> user",
			groups: []string{"other-group"},
			want:   RoleUser,
		},
		{
			name:   "пустой список групп -> user",
			groups: nil,
			want:   RoleUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapGroupsToRole(tt.groups, adminGroups, managerGroups)
			if got != tt.want {
				t.Errorf("MapGroupsToRole(%v, ...) = %q, хотели %q", tt.groups, got, tt.want)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleAdmin, true},
		{RoleManager, true},
		{RoleUser, true},
		{"readonly", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			got := IsValidRole(tt.role)
			if got != tt.want {
				t.Errorf("IsValidRole(%q) = %v, хотели %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestPermissions(t *testing.T) {
	tests := []struct {
		name  string
		check func(string) bool
		role  string
		want  bool
	}{
		{"user не управляет запросами", CanManageFileRequests, RoleUser, false},
		{"manager управляет запросами", CanManageFileRequests, RoleManager, true},
		{"manager видит активность", CanViewActivity, RoleManager, true},
		{"manager меняет шаблоны арендатора", CanManageTenantTemplates, RoleManager, true},
		{"manager не меняет системные шаблоны", CanManageSystemTemplates, RoleManager, false},
		{"admin меняет системные шаблоны", CanManageSystemTemplates, RoleAdmin, true},
		{"manager не управляет пользователями", CanManageUsers, RoleManager, false},
		{"admin управляет пользователями", CanManageUsers, RoleAdmin, true},
		{"admin управляет настройками", CanManageSettings, RoleAdmin, true},
		{"неизвестная роль", CanManageSettings, "root", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.role); got != tt.want {
				t.Errorf("проверка для %q = %v, хотели %v", tt.role, got, tt.want)
			}
		})
	}
}
