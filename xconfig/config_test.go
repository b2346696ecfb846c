package xconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const tomlConfig = `
[pool]
buffer_count = 4
buffer_size = 1024

[pipeline]
frames = 100
producers = 2
frame_size = 512

[log]
level = "debug"

[consul]
addr = "http://127.0.0.1:8500"
`

const yamlConfig = `
pool:
  buffer_count: 8
  buffer_size: 2048
pipeline:
  consumers: 3
http:
  enabled: false
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load(writeFile(t, "pipe.toml", tomlConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pool.BufferCount != 4 || cfg.Pool.BufferSize != 1024 {
		t.Fatalf("pool = %+v", cfg.Pool)
	}
	if cfg.Pipeline.Frames != 100 || cfg.Pipeline.Producers != 2 || cfg.Pipeline.FrameSize != 512 {
		t.Fatalf("pipeline = %+v", cfg.Pipeline)
	}
	// untouched fields keep their defaults
	if cfg.Pipeline.Consumers != 1 || cfg.HTTP.Listen != "127.0.0.1:13000" || cfg.Consul.ServiceName != "framepipe" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Log.Level != "debug" || cfg.Consul.Addr != "http://127.0.0.1:8500" {
		t.Fatalf("log/consul = %+v %+v", cfg.Log, cfg.Consul)
	}
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "pipe.yml", yamlConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pool.BufferCount != 8 || cfg.Pool.BufferSize != 2048 || cfg.Pipeline.Consumers != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.HTTP.Enabled {
		t.Fatal("http.enabled not applied")
	}
}

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "pipe.json", `{"pool": {"buffer_count": 2, "buffer_size": 64}}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pool.BufferCount != 2 || cfg.Pool.BufferSize != 64 {
		t.Fatalf("pool = %+v", cfg.Pool)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(writeFile(t, "pipe.ini", "x=1")); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("ini err = %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("missing file loaded")
	}
	if _, err := Load(writeFile(t, "bad.yaml", "pool:\n  buffer_cnt: 3\n")); err == nil {
		t.Fatal("unknown yaml key accepted")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero buffers", func(c *Config) { c.Pool.BufferCount = 0 }},
		{"zero size", func(c *Config) { c.Pool.BufferSize = 0 }},
		{"no producers", func(c *Config) { c.Pipeline.Producers = 0 }},
		{"frame too large", func(c *Config) { c.Pipeline.FrameSize = c.Pool.BufferSize + 1 }},
		{"negative frames", func(c *Config) { c.Pipeline.Frames = -1 }},
		{"empty listen", func(c *Config) { c.HTTP.Listen = "" }},
		{"bad level", func(c *Config) { c.Log.Level = "chatty" }},
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}
