package mesh

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the run configuration from a YAML file.
// Options not present in the file keep their DefaultOptions value.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Config{Options: DefaultOptions()}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks option ranges. Input and output paths are not required
// here since the CLI may supply them.
func (c *Config) Validate() error {
	o := c.Options
	if o.MinPointsPerSlice < 0 || (o.MinPointsPerSlice > 0 && o.MinPointsPerSlice < MinPointsPerSlice) {
		return fmt.Errorf("%w: options.minPointsPerSlice must be 0 (default) or >= %d, got %d", ErrInput, MinPointsPerSlice, o.MinPointsPerSlice)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: options.workers must be >= 0, got %d", ErrInput, o.Workers)
	}
	if o.CallTimeout < 0 {
		return fmt.Errorf("%w: options.callTimeout must be >= 0, got %v", ErrInput, o.CallTimeout)
	}
	if o.ScaleIn < 0 || o.ScaleOut < 0 {
		return fmt.Errorf("%w: options.scaleIn/scaleOut must be >= 0", ErrInput)
	}
	if c.Render.Resolution < 0 {
		return fmt.Errorf("%w: render.resolution must be >= 0", ErrInput)
	}
	if c.Render.Simplify < 0 {
		return fmt.Errorf("%w: render.simplify must be >= 0", ErrInput)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays MQTT settings from MQTT_BROKER, MQTT_CLIENT_ID,
// MQTT_USERNAME and MQTT_PASSWORD when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_CLIENT_ID"); v != "" {
		c.MQTT.ClientID = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
}
