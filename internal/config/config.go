package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve on minimal images

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"agile-live/internal/chart"
	"agile-live/internal/model"
	"agile-live/internal/pipeline"
)

// Config is the merged configuration: defaults, config file, AGILE_* env.
type Config struct {
	Tariff   TariffConfig   `mapstructure:"tariff" yaml:"tariff"`
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Chart    ChartConfig    `mapstructure:"chart" yaml:"chart"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	MQTT     MQTTConfig     `mapstructure:"mqtt" yaml:"mqtt"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
}

type TariffConfig struct {
	// Optional: load tariff parameters from a separate YAML (e.g. configs/tariffs/*.yaml).
	// Explicit product_code/region values override the file.
	TariffFile  string `mapstructure:"tariff_file" yaml:"tariff_file,omitempty"`
	Name        string `mapstructure:"name" yaml:"name,omitempty"`
	ProductCode string `mapstructure:"product_code" yaml:"product_code"`
	Region      string `mapstructure:"region" yaml:"region"`
}

type SourceConfig struct {
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PageSize int           `mapstructure:"page_size" yaml:"page_size"`
	MaxPages int           `mapstructure:"max_pages" yaml:"max_pages"`
	// File serves a saved unit-rates response instead of calling the API.
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

type AnalysisConfig struct {
	SlotMinutes   int    `mapstructure:"slot_minutes" yaml:"slot_minutes"`
	Timezone      string `mapstructure:"timezone" yaml:"timezone"`
	FallbackSlots int    `mapstructure:"fallback_slots" yaml:"fallback_slots"`
}

type ChartConfig struct {
	Width     int `mapstructure:"width" yaml:"width"`
	Height    int `mapstructure:"height" yaml:"height"`
	PadLeft   int `mapstructure:"pad_left" yaml:"pad_left"`
	PadRight  int `mapstructure:"pad_right" yaml:"pad_right"`
	PadTop    int `mapstructure:"pad_top" yaml:"pad_top"`
	PadBottom int `mapstructure:"pad_bottom" yaml:"pad_bottom"`
}

type ServerConfig struct {
	Port        string   `mapstructure:"port" yaml:"port"`
	Env         string   `mapstructure:"env" yaml:"env"`
	StaticDir   string   `mapstructure:"static_dir" yaml:"static_dir"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker" yaml:"broker"`
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	Topic    string `mapstructure:"topic" yaml:"topic"`
	QoS      byte   `mapstructure:"qos" yaml:"qos"`
	Retain   bool   `mapstructure:"retain" yaml:"retain"`
}

type ScheduleConfig struct {
	Spec string `mapstructure:"spec" yaml:"spec"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tariff.tariff_file", "")
	v.SetDefault("tariff.name", "")
	v.SetDefault("tariff.product_code", "AGILE-24-10-01")
	v.SetDefault("tariff.region", "A")
	v.SetDefault("source.base_url", "https://api.octopus.energy")
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.page_size", 100)
	v.SetDefault("source.max_pages", 1)
	v.SetDefault("source.file", "")
	v.SetDefault("analysis.slot_minutes", 30)
	v.SetDefault("analysis.timezone", "Europe/London")
	v.SetDefault("analysis.fallback_slots", 0)
	v.SetDefault("chart.width", 600)
	v.SetDefault("chart.height", 300)
	v.SetDefault("chart.pad_left", 60)
	v.SetDefault("chart.pad_right", 20)
	v.SetDefault("chart.pad_top", 20)
	v.SetDefault("chart.pad_bottom", 30)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", false)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", 15*time.Minute)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "agile-live")
	v.SetDefault("mqtt.topic", "agile/prices")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", true)
	v.SetDefault("schedule.spec", "5 0,30 * * * *")
}

// Load reads configuration. With an empty path it looks for config.local.yaml
// then config.yaml in ./configs and .; a missing file is not an error. The
// result is validated.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("AGILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configDir := "."
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		configDir = filepath.Dir(path)
	} else {
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.SetConfigName("config.local")
		if err := v.ReadInConfig(); err != nil {
			v.SetConfigName("config")
			if err := v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("read config: %w", err)
				}
			}
		}
		if used := v.ConfigFileUsed(); used != "" {
			configDir = filepath.Dir(used)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// If tariff_file is set, load it and merge in any explicit overrides.
	if c.Tariff.TariffFile != "" {
		tariffPath := c.Tariff.TariffFile
		if !filepath.IsAbs(tariffPath) {
			// Prefer interpreting relative paths as relative to the config file directory,
			// but fall back to the provided path (relative to cwd) if that doesn't exist.
			cand := filepath.Join(configDir, tariffPath)
			if _, err := os.Stat(cand); err == nil {
				tariffPath = cand
			}
		}
		loaded, err := LoadTariffFile(tariffPath)
		if err != nil {
			return nil, err
		}
		// Defaults would otherwise mask the preset.
		override := c.Tariff
		if !v.InConfig("tariff.product_code") && os.Getenv("AGILE_TARIFF_PRODUCT_CODE") == "" {
			override.ProductCode = ""
		}
		if !v.InConfig("tariff.region") && os.Getenv("AGILE_TARIFF_REGION") == "" {
			override.Region = ""
		}
		c.Tariff = MergeTariff(loaded, override)
	}
	c.Tariff.Region = strings.ToUpper(strings.TrimSpace(c.Tariff.Region))
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Tariff.ToModel().Validate(); err != nil {
		return fmt.Errorf("tariff config invalid: %w", err)
	}
	if _, err := chart.TotalSlots(c.SlotDuration()); err != nil || c.Analysis.SlotMinutes <= 0 {
		return fmt.Errorf("analysis.slot_minutes must divide 1440, got %d", c.Analysis.SlotMinutes)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("analysis.timezone invalid: %w", err)
	}
	if c.Analysis.FallbackSlots < 0 {
		return errors.New("analysis.fallback_slots must be >= 0")
	}
	if err := c.Canvas().Validate(); err != nil {
		return fmt.Errorf("chart config invalid: %w", err)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (t TariffConfig) ToModel() model.Tariff {
	return model.Tariff{ProductCode: t.ProductCode, Region: t.Region}
}

func (c *Config) SlotDuration() time.Duration {
	return time.Duration(c.Analysis.SlotMinutes) * time.Minute
}

func (c *Config) Location() (*time.Location, error) {
	if c.Analysis.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Analysis.Timezone)
}

func (c *Config) Canvas() chart.Canvas {
	return chart.Canvas{
		Width:  float64(c.Chart.Width),
		Height: float64(c.Chart.Height),
		Padding: chart.Padding{
			Left:   float64(c.Chart.PadLeft),
			Right:  float64(c.Chart.PadRight),
			Top:    float64(c.Chart.PadTop),
			Bottom: float64(c.Chart.PadBottom),
		},
	}
}

// PipelineOptions builds engine options; the config must be valid.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.DefaultOptions()
	opts.SlotDuration = c.SlotDuration()
	opts.Location = loc
	opts.FallbackSlots = c.Analysis.FallbackSlots
	opts.Canvas = c.Canvas()
	return opts, nil
}

type tariffFileWrapper struct {
	Tariff TariffConfig `yaml:"tariff"`
}

// LoadTariffFile reads a tariff preset (a YAML file with a top-level `tariff:` key).
func LoadTariffFile(path string) (TariffConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return TariffConfig{}, err
	}
	var w tariffFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return TariffConfig{}, fmt.Errorf("parse tariff file %s: %w", path, err)
	}
	return w.Tariff, nil
}

// MergeTariff overlays non-empty fields from override onto base.
func MergeTariff(base, override TariffConfig) TariffConfig {
	out := base
	out.TariffFile = override.TariffFile
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.ProductCode != "" {
		out.ProductCode = override.ProductCode
	}
	if override.Region != "" {
		out.Region = override.Region
	}
	return out
}

// Dump renders the effective configuration as YAML.
func (c *Config) Dump() ([]byte, error) {
	redacted := *c
	if redacted.Cache.RedisPassword != "" {
		redacted.Cache.RedisPassword = "***"
	}
	return yaml.Marshal(redacted)
}
