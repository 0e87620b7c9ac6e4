package auth

import "testing"

func TestHasMinimumRole_TotalOrder(t *testing.T) {
	// For all pairs in viewer < member < admin < owner:
	// HasMinimumRole(higher, lower) holds, HasMinimumRole(lower, higher)
	// holds only on equality.
	for i, required := range ValidRoles {
		for j, effective := range ValidRoles {
			got := HasMinimumRole(effective, required)
			want := j >= i
			if got != want {
				t.Errorf("HasMinimumRole(%s, %s) = %v, want %v",
					effective, required, got, want)
			}
		}
	}
}

func TestHasMinimumRole_UnknownEffective(t *testing.T) {
	tests := []struct {
		name      string
		effective Role
	}{
		{name: "empty role", effective: ""},
		{name: "unknown role", effective: "superuser"},
		{name: "case mismatch", effective: "Admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if HasMinimumRole(tt.effective, RoleViewer) {
				t.Errorf("HasMinimumRole(%q, viewer) should fail", tt.effective)
			}
		})
	}
}

func TestHasMinimumRole_UnknownRequired(t *testing.T) {
	if HasMinimumRole(RoleOwner, "root") {
		t.Error("HasMinimumRole(owner, unknown) should fail")
	}
}

func TestIsExactRole(t *testing.T) {
	if !IsExactRole(RoleViewer, RoleViewer) {
		t.Error("IsExactRole(viewer, viewer) should hold")
	}
	if IsExactRole(RoleOwner, RoleViewer) {
		t.Error("IsExactRole(owner, viewer) should fail: exact match, not minimum")
	}
	if IsExactRole("", "") {
		t.Error("IsExactRole with empty roles should fail")
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range ValidRoles {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%s) = false", r)
		}
	}
	if IsValidRole("panel") {
		t.Error("IsValidRole(panel) should be false")
	}
}
