package graph

import (
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config controls how a Network runs its passes.
type Config struct {
	// Device all node matrices and pooled buffers are placed on.
	Device tensor.Device `yaml:"device"`

	// CheckPoolBalance makes every pass fail when a node keeps a pooled
	// buffer it requested.
	CheckPoolBalance bool `yaml:"check_pool_balance"`

	// LogPoolStats logs pool counters after every gradient pass (klog -v=2).
	LogPoolStats bool `yaml:"log_pool_stats"`

	// PoisonReleasedBuffers fills released buffers with NaN.
	PoisonReleasedBuffers bool `yaml:"poison_released_buffers"`

	// PerFrame evaluates nodes carrying a minibatch layout one time step at a
	// time instead of over the whole minibatch.
	PerFrame bool `yaml:"per_frame"`
}

// DefaultConfig returns the configuration used when none is given: CPU, with
// pool balance checks on.
func DefaultConfig() Config {
	return Config{
		Device:           tensor.CPU,
		CheckPoolBalance: true,
	}
}

// ParseConfig reads a YAML configuration. Fields not present keep their
// DefaultConfig value.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "graph: parsing configuration")
	}
	return cfg, nil
}

// Marshal returns the YAML form of the configuration.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "graph: writing configuration")
	}
	return data, nil
}
