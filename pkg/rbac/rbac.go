package rbac

// 权限常量
const (
	// 只读权限
	PermissionReadHabits    = "habits:read"
	PermissionReadSchedules = "schedules:read"
	PermissionReadNotes     = "notes:read"

	// 写权限
	PermissionWriteHabits    = "habits:write"
	PermissionWriteSchedules = "schedules:write"
	PermissionWriteNotes     = "notes:write"

	// 运维操作
	PermissionRunJobs      = "jobs:run"
	PermissionReplayOutbox = "outbox:replay"
)

// 角色常量，JWT 的 subject 就是角色名
const (
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleViewer: {
		PermissionReadHabits,
		PermissionReadSchedules,
		PermissionReadNotes,
	},
	RoleAdmin: {
		PermissionReadHabits,
		PermissionReadSchedules,
		PermissionReadNotes,
		PermissionWriteHabits,
		PermissionWriteSchedules,
		PermissionWriteNotes,
		PermissionRunJobs,
		PermissionReplayOutbox,
	},
}

// IsRole 判断是否是已知角色
func IsRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查角色是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
