package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hyakvnc/hyakvnc/errors"
	"github.com/hyakvnc/hyakvnc/schema"
)

var memoryRegex = regexp.MustCompile(`^[0-9]+[KMGT]$`)

// SetDefaults fills zero-valued fields with their built-in defaults.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.JobPrefix == "" {
		c.JobPrefix = "hyakvnc"
	}
	if c.Slurm.CPUs == 0 {
		c.Slurm.CPUs = 4
	}
	if c.Slurm.Memory == "" {
		c.Slurm.Memory = "16G"
	}
	if c.Slurm.GPUs == "" {
		c.Slurm.GPUs = "0"
	}
	if c.Slurm.TimeLimit == "" {
		c.Slurm.TimeLimit = "4:00:00"
	}
	if c.Slurm.SubmitTimeout == 0 {
		c.Slurm.SubmitTimeout = Duration(2 * time.Minute)
	}
	if c.Slurm.PollInterval == 0 {
		c.Slurm.PollInterval = Duration(2 * time.Second)
	}
	if c.Container.Binary == "" {
		c.Container.Binary = "apptainer"
	}
	if c.Container.VNCApp == "" {
		c.Container.VNCApp = "vncserver"
	}
	if c.Container.CleanupApp == "" {
		c.Container.CleanupApp = "vncserver-kill"
	}
	if len(c.Container.BindPaths) == 0 {
		c.Container.BindPaths = []string{"/tmp", "/gscratch", "/sw"}
	}
	if c.Container.DiscoveryTimeout == 0 {
		c.Container.DiscoveryTimeout = Duration(time.Minute)
	}
	if c.Tunnel.Binary == "" {
		c.Tunnel.Binary = "ssh"
	}
	if c.Tunnel.BasePort == 0 {
		c.Tunnel.BasePort = 5900
	}
	if c.Tunnel.VerifyAttempts == 0 {
		c.Tunnel.VerifyAttempts = 10
	}
	if c.Tunnel.VerifyDelay == 0 {
		c.Tunnel.VerifyDelay = Duration(time.Second)
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
}

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if !memoryRegex.MatchString(c.Slurm.Memory) {
		return errors.ConfigInvalid(fmt.Sprintf("slurm.memory %q must look like 16G", c.Slurm.Memory))
	}
	if c.Tunnel.BasePort < 1024 || c.Tunnel.BasePort > 65000 {
		return errors.ConfigInvalid(fmt.Sprintf("tunnel.base_port %d out of range", c.Tunnel.BasePort))
	}
	if c.Workers < 1 {
		return errors.ConfigInvalid("workers must be at least 1")
	}
	if strings.ContainsAny(c.JobPrefix, " \t") {
		return errors.ConfigInvalid("job_prefix must not contain whitespace")
	}
	for _, bind := range c.Container.BindPaths {
		if strings.ContainsAny(bind, ";|&$`") {
			return errors.ConfigInvalid(fmt.Sprintf("bind path %q contains shell metacharacters", bind))
		}
	}
	return nil
}

// validateSchema validates the config against the embedded JSON schema.
func validateSchema(c *Config) error {
	validator, err := schema.NewValidator()
	if err != nil {
		return err
	}
	return validator.Validate(c)
}
