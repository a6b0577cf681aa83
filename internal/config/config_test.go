package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "server:\n  port: \"9090\"\n")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Port != "9090" {
		t.Fatalf("port = %s", c.Server.Port)
	}
	if c.Tariff.ProductCode != "AGILE-24-10-01" || c.Tariff.Region != "A" {
		t.Fatalf("tariff = %+v", c.Tariff)
	}
	if c.SlotDuration() != 30*time.Minute || c.Source.Timeout != 30*time.Second {
		t.Fatalf("slot=%s timeout=%s", c.SlotDuration(), c.Source.Timeout)
	}
	if c.Schedule.Spec != "5 0,30 * * * *" {
		t.Fatalf("schedule = %q", c.Schedule.Spec)
	}
	if cv := c.Canvas(); cv.Width != 600 || cv.Padding.Left != 60 || cv.Padding.Bottom != 30 {
		t.Fatalf("canvas = %+v", cv)
	}
}

func TestLoadTariffFileWithOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tariffs", "london.yaml"),
		"tariff:\n  name: London\n  product_code: AGILE-23-12-06\n  region: c\n")

	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "tariff:\n  tariff_file: tariffs/london.yaml\n")
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Tariff.ProductCode != "AGILE-23-12-06" || c.Tariff.Region != "C" || c.Tariff.Name != "London" {
		t.Fatalf("tariff = %+v", c.Tariff)
	}

	writeFile(t, path, "tariff:\n  tariff_file: tariffs/london.yaml\n  region: N\n")
	c, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Tariff.ProductCode != "AGILE-23-12-06" || c.Tariff.Region != "N" {
		t.Fatalf("override not applied: %+v", c.Tariff)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "tariff:\n  region: B\n")

	t.Setenv("AGILE_TARIFF_REGION", "m")
	t.Setenv("AGILE_ANALYSIS_SLOT_MINUTES", "60")
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Tariff.Region != "M" || c.Analysis.SlotMinutes != 60 {
		t.Fatalf("env not applied: %+v %+v", c.Tariff, c.Analysis)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no product", func(c *Config) { c.Tariff.ProductCode = "" }, "product code"},
		{"bad region", func(c *Config) { c.Tariff.Region = "I" }, "region"},
		{"slot", func(c *Config) { c.Analysis.SlotMinutes = 7 }, "slot_minutes"},
		{"zero slot", func(c *Config) { c.Analysis.SlotMinutes = 0 }, "slot_minutes"},
		{"timezone", func(c *Config) { c.Analysis.Timezone = "Mars/Olympus" }, "timezone"},
		{"canvas", func(c *Config) { c.Chart.PadLeft = 600 }, "chart"},
		{"qos", func(c *Config) { c.MQTT.QoS = 3 }, "qos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, "{}\n")
			c, err := LoadUnchecked(path)
			if err != nil {
				t.Fatal(err)
			}
			if err := c.Validate(); err != nil {
				t.Fatalf("defaults invalid: %v", err)
			}
			tt.mutate(c)
			err = c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestPipelineOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "analysis:\n  timezone: UTC\n  fallback_slots: 24\nchart:\n  width: 800\n")
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := c.PipelineOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Location != time.UTC || opts.FallbackSlots != 24 || opts.Canvas.Width != 800 {
		t.Fatalf("opts = %+v", opts)
	}
}

func TestDumpRedactsPassword(t *testing.T) {
	c := &Config{Cache: CacheConfig{RedisPassword: "hunter2"}}
	out, err := c.Dump()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "hunter2") {
		t.Fatal("password leaked")
	}
}
