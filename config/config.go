package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Sim    SimConfig    `mapstructure:"sim"`
	Data   DataConfig   `mapstructure:"data"`
	Log    LogConfig    `mapstructure:"log"`
	Script ScriptConfig `mapstructure:"script"`
}

type ServerConfig struct {
	Debug bool `mapstructure:"debug"`
}

// SimConfig holds the simulation tuning.
type SimConfig struct {
	TickMs          int     `mapstructure:"tick_ms"`
	WindupFraction  float64 `mapstructure:"windup_fraction"`
	StunDuration    float64 `mapstructure:"stun_duration"`
	WiggleAmplitude float64 `mapstructure:"wiggle_amplitude"`
	WiggleFrequency float64 `mapstructure:"wiggle_frequency"`
	WanderSpeed     float64 `mapstructure:"wander_speed"`
	PlayerRadius    float64 `mapstructure:"player_radius"`
	PlayerHealth    float64 `mapstructure:"player_health"`
	Seed            int64   `mapstructure:"seed"`
}

// TickInterval returns the fixed step as a duration.
func (c SimConfig) TickInterval() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

type DataConfig struct {
	Catalogue  string `mapstructure:"catalogue"`
	Items      string `mapstructure:"items"`
	Map        string `mapstructure:"map"`
	ScriptsDir string `mapstructure:"scripts_dir"`
	// Watch reloads the catalogue when its file changes.
	Watch bool `mapstructure:"watch"`
}

type LogConfig struct {
	Dir           string        `mapstructure:"dir"`
	MaxSizeMB     int           `mapstructure:"max_size_mb"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	QueueSize     int           `mapstructure:"queue_size"`
}

type ScriptConfig struct {
	VMPoolSize int           `mapstructure:"vm_pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	QueueSize  int           `mapstructure:"queue_size"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.debug", false)
	v.SetDefault("sim.tick_ms", 16)
	v.SetDefault("sim.windup_fraction", 0.3)
	v.SetDefault("sim.stun_duration", 0.4)
	v.SetDefault("sim.wiggle_amplitude", 0.1)
	v.SetDefault("sim.wiggle_frequency", 10.0)
	v.SetDefault("sim.wander_speed", 8.0)
	v.SetDefault("sim.player_radius", 2.0)
	v.SetDefault("sim.player_health", 100.0)
	v.SetDefault("sim.seed", 1)
	v.SetDefault("data.catalogue", "./data/actors.yaml")
	v.SetDefault("data.items", "./data/items.yaml")
	v.SetDefault("data.map", "./data/map.yaml")
	v.SetDefault("data.scripts_dir", "./data/scripts")
	v.SetDefault("data.watch", true)
	v.SetDefault("log.dir", "./logs")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.flush_interval", "1s")
	v.SetDefault("log.queue_size", 1024)
	v.SetDefault("script.vm_pool_size", 2)
	v.SetDefault("script.timeout", "500ms")
	v.SetDefault("script.queue_size", 256)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.Sim.TickMs <= 0 {
		return nil, fmt.Errorf("sim.tick_ms must be positive, got %d", cfg.Sim.TickMs)
	}
	return cfg, nil
}
