package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config is the parsed hyakvnc.yml.
type Config struct {
	Version string `yaml:"version" json:"version"`

	// JobPrefix is prepended to every scheduler job name. Scheduler jobs are
	// filtered by this prefix to distinguish hyakvnc sessions from unrelated
	// jobs owned by the same user.
	JobPrefix string `yaml:"job_prefix" json:"job_prefix"`

	// LoginHost is the externally reachable login node name rendered into
	// client-side connection instructions.
	LoginHost string `yaml:"login_host" json:"login_host"`

	Slurm     SlurmConfig     `yaml:"slurm" json:"slurm"`
	Container ContainerConfig `yaml:"container" json:"container"`
	Tunnel    TunnelConfig    `yaml:"tunnel" json:"tunnel"`

	// Workers bounds how many sessions a --all operation touches concurrently.
	Workers int `yaml:"workers" json:"workers"`

	// Extensions captures tool-specific sections (e.g. "logging") that are
	// decoded on demand with UnmarshalExtension.
	Extensions map[string]interface{} `yaml:",inline" json:"-"`
}

// SlurmConfig holds scheduler defaults and polling bounds.
type SlurmConfig struct {
	Account   string `yaml:"account" json:"account"`
	Partition string `yaml:"partition" json:"partition"`
	CPUs      int    `yaml:"cpus" json:"cpus"`
	Memory    string `yaml:"memory" json:"memory"`
	GPUs      string `yaml:"gpus" json:"gpus"`
	TimeLimit string `yaml:"time_limit" json:"time_limit"`

	// SubmitTimeout bounds the wait for a submitted job to start running.
	SubmitTimeout Duration `yaml:"submit_timeout" json:"submit_timeout"`
	// PollInterval is the fixed interval between squeue queries while waiting.
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`
}

// ContainerConfig holds Apptainer settings.
type ContainerConfig struct {
	// Binary is the apptainer executable, resolved through PATH when relative.
	Binary string `yaml:"binary" json:"binary"`
	// Image is the default .sif path or remote reference.
	Image string `yaml:"image" json:"image"`
	// BindPaths are mounted into the container (apptainer -B syntax).
	BindPaths []string `yaml:"bind_paths" json:"bind_paths"`
	// VNCApp and CleanupApp name the container apps run for serving and teardown.
	VNCApp     string `yaml:"vnc_app" json:"vnc_app"`
	CleanupApp string `yaml:"cleanup_app" json:"cleanup_app"`
	// Xstartup is passed to the VNC server app when set.
	Xstartup string `yaml:"xstartup" json:"xstartup"`
	// DiscoveryTimeout bounds the wait for the VNC endpoint to appear.
	DiscoveryTimeout Duration `yaml:"discovery_timeout" json:"discovery_timeout"`
}

// TunnelConfig holds connection-path settings.
type TunnelConfig struct {
	// Binary is the remote-login tool used for forwarding, normally ssh.
	Binary string `yaml:"binary" json:"binary"`
	// BasePort is where the free-local-port scan starts.
	BasePort int `yaml:"base_port" json:"base_port"`
	// VerifyAttempts and VerifyDelay bound the local connect verification.
	VerifyAttempts int      `yaml:"verify_attempts" json:"verify_attempts"`
	VerifyDelay    Duration `yaml:"verify_delay" json:"verify_delay"`
}

// Duration is a time.Duration that round-trips through YAML as a string
// like "2m" or "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// MarshalJSON keeps schema validation seeing durations as strings.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", time.Duration(d).String())), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded hyakvnc.yml into the provided target struct. The target must be a
// pointer. This provides a type-safe way for subsystems to access their
// custom configuration sections.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		// The target struct will simply remain zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
