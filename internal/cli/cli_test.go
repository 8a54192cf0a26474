package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitbot/internal/config"
	"habitbot/pkg/rbac"
	"habitbot/pkg/util"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReminderTimes(t *testing.T) {
	assert.Equal(t, "", reminderTimes(nil))
	assert.Equal(t, "09:30", reminderTimes([]config.ClockTime{{Hour: 9, Minute: 30}}))
	assert.Equal(t, "15:00, 18:00 and 21:00", reminderTimes([]config.ClockTime{{Hour: 15}, {Hour: 18}, {Hour: 21}}))
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "", "hash-password", "hunter2")
	require.NoError(t, err)
	assert.True(t, util.CheckPassword("hunter2", strings.TrimSpace(out)))

	out, err = run(t, "s3cret\n", "hash-password")
	require.NoError(t, err)
	assert.True(t, util.CheckPassword("s3cret", strings.TrimSpace(out)))

	_, err = run(t, "\n", "hash-password")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("jwt:\n  secret: cli-secret\n"), 0o644))

	out, err := run(t, "", "token", "--config-dir", dir, "--env", "test", "--role", rbac.RoleViewer)
	require.NoError(t, err)
	role, err := util.ParseJWT(strings.TrimSpace(out), "cli-secret")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleViewer, role)

	_, err = run(t, "", "token", "--config-dir", dir, "--env", "test", "--role", "root")
	assert.Error(t, err)
}

func TestOutboxReplayNeedsOneTarget(t *testing.T) {
	_, err := run(t, "", "outbox", "replay")
	assert.EqualError(t, err, "specify exactly one of --id or --failed")

	_, err = run(t, "", "outbox", "replay", "--id", "3", "--failed")
	assert.Error(t, err)
}
