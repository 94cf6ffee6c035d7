package model_test

import (
	"testing"

	"schoollibrary/model"

	"github.com/stretchr/testify/assert"
)

func TestRoles(t *testing.T) {
	tests := []struct {
		role  model.Role
		valid bool
		staff bool
	}{
		{model.RoleStudent, true, false},
		{model.RoleTeacher, true, true},
		{model.RoleStaff, true, true},
		{model.RoleAdmin, true, true},
		{"librarian", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.role.Valid(), "valid(%q)", tt.role)
		assert.Equal(t, tt.staff, tt.role.IsStaff(), "staff(%q)", tt.role)
	}
}
