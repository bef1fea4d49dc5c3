package deviceconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDeviceConfig(t *testing.T) {
	path := writeFile(t, "device.ini", `
[device]
imei = 123456789012345
password = secret
host = 193.193.165.165
port = 20332
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2.0", cfg.Version) // defaulted
	assert.Equal(t, "123456789012345", cfg.IMEI)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "193.193.165.165", cfg.Host)
	assert.Equal(t, "20332", cfg.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	assert.Error(t, err)
}

func TestLoadRegistry(t *testing.T) {
	path := writeFile(t, "registry.ini", `
[wips]
password = wips

[867111222333444]
password = hunter2
`)
	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	cred, ok := reg.Lookup("wips")
	require.True(t, ok)
	assert.Equal(t, "wips", cred.Password)

	cred, ok = reg.Lookup("867111222333444")
	require.True(t, ok)
	assert.Equal(t, "hunter2", cred.Password)

	_, ok = reg.Lookup("unknown")
	assert.False(t, ok)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("wips", Credential{Password: "wips"}))
	assert.Error(t, reg.Register("wips", Credential{Password: "other"}))

	require.NoError(t, reg.Unregister("wips"))
	assert.Error(t, reg.Unregister("wips"))
}
