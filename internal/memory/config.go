package memory

import (
	"errors"
	"fmt"
)

// RecencyMode selects how elapsed time feeds the recency component of the score.
type RecencyMode string

const (
	// RecencyElapsed rewards older memories: the raw elapsed time is scaled as is.
	RecencyElapsed RecencyMode = "elapsed"
	// RecencyFreshness rewards newer memories by negating the elapsed time.
	RecencyFreshness RecencyMode = "freshness"
)

var ErrInvalidConfig = errors.New("memory: invalid config")

type Config struct {
	ImportanceThreshold float64     `mapstructure:"importance_threshold" yaml:"importance_threshold"`
	BatchSize           int         `mapstructure:"batch_size" yaml:"batch_size"`
	Dimensions          int         `mapstructure:"dimensions" yaml:"dimensions"`
	RecencyWeight       float64     `mapstructure:"recency_weight" yaml:"recency_weight"`
	RelevanceWeight     float64     `mapstructure:"relevance_weight" yaml:"relevance_weight"`
	ImportanceWeight    float64     `mapstructure:"importance_weight" yaml:"importance_weight"`
	ScaleMax            float64     `mapstructure:"scale_max" yaml:"scale_max"`
	Epsilon             float64     `mapstructure:"epsilon" yaml:"epsilon"`
	Recency             RecencyMode `mapstructure:"recency" yaml:"recency"`
}

func DefaultConfig() Config {
	return Config{
		ImportanceThreshold: 3,
		BatchSize:           1,
		Dimensions:          256,
		RecencyWeight:       1,
		RelevanceWeight:     1,
		ImportanceWeight:    1,
		ScaleMax:            1,
		Epsilon:             1e-4,
		Recency:             RecencyElapsed,
	}
}

func (c Config) Validate() error {
	switch {
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size %d < 1", ErrInvalidConfig, c.BatchSize)
	case c.Dimensions < 1:
		return fmt.Errorf("%w: dimensions %d < 1", ErrInvalidConfig, c.Dimensions)
	case c.ImportanceThreshold < MinImportance || c.ImportanceThreshold > MaxImportance:
		return fmt.Errorf("%w: importance threshold %.2f outside [0, 10]", ErrInvalidConfig, c.ImportanceThreshold)
	case c.Epsilon <= 0:
		return fmt.Errorf("%w: epsilon must be positive", ErrInvalidConfig)
	case c.ScaleMax <= 0:
		return fmt.Errorf("%w: scale max must be positive", ErrInvalidConfig)
	}
	switch c.Recency {
	case RecencyElapsed, RecencyFreshness:
	default:
		return fmt.Errorf("%w: unknown recency mode %q", ErrInvalidConfig, c.Recency)
	}
	return nil
}
