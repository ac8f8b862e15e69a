package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyakvnc/hyakvnc/errors"
)

func TestLoadFromBytesAppliesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("login_host: klone.hyak.uw.edu\n"))
	require.NoError(t, err)

	assert.Equal(t, "klone.hyak.uw.edu", cfg.LoginHost)
	assert.Equal(t, "hyakvnc", cfg.JobPrefix)
	assert.Equal(t, 4, cfg.Slurm.CPUs)
	assert.Equal(t, "16G", cfg.Slurm.Memory)
	assert.Equal(t, "0", cfg.Slurm.GPUs)
	assert.Equal(t, 2*time.Minute, cfg.Slurm.SubmitTimeout.Std())
	assert.Equal(t, "apptainer", cfg.Container.Binary)
	assert.Equal(t, "vncserver", cfg.Container.VNCApp)
	assert.Equal(t, 5900, cfg.Tunnel.BasePort)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadFromBytesExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_VNC_IMAGE", "/containers/desktop.sif")

	cfg, err := LoadFromBytes([]byte(`
container:
  image: ${TEST_VNC_IMAGE}
slurm:
  account: ${TEST_VNC_ACCOUNT:-escience}
`))
	require.NoError(t, err)
	assert.Equal(t, "/containers/desktop.sif", cfg.Container.Image)
	assert.Equal(t, "escience", cfg.Slurm.Account)
}

func TestLoadFromBytesParsesDurations(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
slurm:
  submit_timeout: 5m
  poll_interval: 500ms
container:
  discovery_timeout: 90s
`))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Slurm.SubmitTimeout.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.Slurm.PollInterval.Std())
	assert.Equal(t, 90*time.Second, cfg.Container.DiscoveryTimeout.Std())
}

func TestLoadFromBytesRejectsBadMemory(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
slurm:
  memory: sixteen-gigs
`))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestLoadFromBytesRejectsShellMetacharactersInBinds(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
container:
  bind_paths:
    - "/tmp; rm -rf /"
`))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestUnmarshalExtension(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
login_host: klone.hyak.uw.edu
notify:
  webhook: https://example.org/hook
  on_failure: true
`))
	require.NoError(t, err)

	var notify struct {
		Webhook   string `yaml:"webhook"`
		OnFailure bool   `yaml:"on_failure"`
	}
	require.NoError(t, cfg.UnmarshalExtension("notify", &notify))
	assert.Equal(t, "https://example.org/hook", notify.Webhook)
	assert.True(t, notify.OnFailure)
}

func TestFindConfigFileEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\n"), 0o600))
	t.Setenv("HYAKVNC_CONFIG", path)

	found, err := FindConfigFile()
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFindConfigFileEnvPointsNowhere(t *testing.T) {
	t.Setenv("HYAKVNC_CONFIG", filepath.Join(t.TempDir(), "absent.yml"))

	_, err := FindConfigFile()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
}

func TestLoadOrDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HYAKVNC_CONFIG", "")
	t.Setenv("HYAKVNC_CONFIG_DIR", t.TempDir())
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	cfg, err := LoadOrDefaults()
	require.NoError(t, err)
	assert.Equal(t, "hyakvnc", cfg.JobPrefix)
}
