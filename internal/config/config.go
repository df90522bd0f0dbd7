package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Agent        Agent        `yaml:"agent"`
	Capabilities Capabilities `yaml:"capabilities"`
	Inventory    Inventory    `yaml:"inventory"`
	Logging      Logging      `yaml:"logging"`
}

type Agent struct {
	// UseSudo runs vendor tools through sudo
	UseSudo   bool     `yaml:"use_sudo"`
	SysfsRoot string   `yaml:"sysfs_root"`
	Hardware  Hardware `yaml:"hardware"`
}

type Hardware struct {
	RAID RAID `yaml:"raid"`
	OBM  OBM  `yaml:"obm"`
}

type RAID struct {
	StorcliPath string `yaml:"storcli_path"`
}

type OBM struct {
	RacadmPath string `yaml:"racadm_path"`
}

type Capabilities struct {
	// Timeout bounds every mutating capability
	Timeout        time.Duration  `yaml:"timeout"`
	CreateDefaults CreateDefaults `yaml:"create_defaults"`
}

// CreateDefaults are the policies used when a create request leaves them out
type CreateDefaults struct {
	IOMode      string `yaml:"io_mode"`
	WritePolicy string `yaml:"write_policy"`
	ReadPolicy  string `yaml:"read_policy"`
}

type Inventory struct {
	DBPath string `yaml:"db_path"`
	// HostID identifies this host in the inventory, defaults to the hostname
	HostID string `yaml:"host_id,omitempty"`
	// Textfile is a Prometheus textfile collector path, disabled when empty
	Textfile string `yaml:"textfile,omitempty"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// defaultConfig is used as is when no config file exists and fills gaps
// in the one that does
var defaultConfig = Config{
	Agent: Agent{
		SysfsRoot: "/sys",
		Hardware: Hardware{
			RAID: RAID{StorcliPath: "storcli"},
			OBM:  OBM{RacadmPath: "racadm"},
		},
	},
	Capabilities: Capabilities{
		Timeout: 60 * time.Second,
		CreateDefaults: CreateDefaults{
			IOMode:      "direct",
			WritePolicy: "wb",
			ReadPolicy:  "ra",
		},
	},
	Inventory: Inventory{
		DBPath: "/var/lib/raidgod/inventory.db",
	},
	Logging: Logging{
		Level:  "info",
		Format: "text",
	},
}

// Default returns a copy of the built in configuration
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// Candidates lists the paths searched when no config file is given
func Candidates() []string {
	return []string{
		"/etc/raidgod/config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/raidgod/config.yaml"),
		"config.yaml",
	}
}

// Load reads the config file at path, or the first existing candidate when
// path is empty. Missing values take their defaults and the STORCLI_PATH and
// RACADM_PATH environment variables override the tool paths.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, c := range Candidates() {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := defaultConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	d := defaultConfig
	setDefault(&c.Agent.SysfsRoot, d.Agent.SysfsRoot)
	setDefault(&c.Agent.Hardware.RAID.StorcliPath, d.Agent.Hardware.RAID.StorcliPath)
	setDefault(&c.Agent.Hardware.OBM.RacadmPath, d.Agent.Hardware.OBM.RacadmPath)
	setDefault(&c.Capabilities.CreateDefaults.IOMode, d.Capabilities.CreateDefaults.IOMode)
	setDefault(&c.Capabilities.CreateDefaults.WritePolicy, d.Capabilities.CreateDefaults.WritePolicy)
	setDefault(&c.Capabilities.CreateDefaults.ReadPolicy, d.Capabilities.CreateDefaults.ReadPolicy)
	setDefault(&c.Inventory.DBPath, d.Inventory.DBPath)
	setDefault(&c.Logging.Level, d.Logging.Level)
	setDefault(&c.Logging.Format, d.Logging.Format)
	if c.Capabilities.Timeout == 0 {
		c.Capabilities.Timeout = d.Capabilities.Timeout
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STORCLI_PATH"); v != "" {
		c.Agent.Hardware.RAID.StorcliPath = v
	}
	if v := os.Getenv("RACADM_PATH"); v != "" {
		c.Agent.Hardware.OBM.RacadmPath = v
	}
}

// Validate rejects values the rest of the program cannot work with
func (c *Config) Validate() error {
	if c.Capabilities.Timeout < 0 {
		return fmt.Errorf("capabilities.timeout must not be negative, got %s", c.Capabilities.Timeout)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// HostID returns the configured host id or the hostname
func (c *Config) HostID() string {
	if c.Inventory.HostID != "" {
		return c.Inventory.HostID
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "localhost"
}

func setDefault(field *string, def string) {
	if *field == "" {
		*field = def
	}
}
