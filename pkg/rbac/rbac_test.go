package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleAdmin, PermissionReplayOutbox))
	assert.True(t, HasPermission(RoleViewer, PermissionReadHabits))
	assert.False(t, HasPermission(RoleViewer, PermissionWriteHabits))
	assert.False(t, HasPermission("guest", PermissionReadHabits))
}

func TestCheckPermission(t *testing.T) {
	assert.NoError(t, CheckPermission(RoleAdmin, PermissionWriteNotes))

	err := CheckPermission(RoleViewer, PermissionRunJobs)
	var denied *PermissionDeniedError
	assert.True(t, errors.As(err, &denied))
	assert.Equal(t, PermissionRunJobs, denied.Permission)
}

func TestIsRole(t *testing.T) {
	assert.True(t, IsRole(RoleViewer))
	assert.False(t, IsRole(""))
}
