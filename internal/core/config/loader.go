package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/idcvault/idcvault/internal/resilience"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Operation.RetentionPeriod == 0 {
		cfg.Operation.RetentionPeriod = resilience.DefaultRetention
	}

	return &cfg, nil
}

// Validate checks the settings a run cannot proceed without.
func (c *AppConfig) Validate() error {
	if c.AWS.IdentityStoreID == "" {
		return fmt.Errorf("aws.identity_store_id is required")
	}
	if c.AWS.InstanceArn == "" {
		return fmt.Errorf("aws.sso_instance_arn is required")
	}
	return nil
}
