package xconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"xframe/xbuffer"
	"xframe/xlog"
)

var (
	ErrUnknownFormat = errors.New("xconfig: unknown config file format")
	ErrInvalid       = errors.New("xconfig: invalid config")
)

// 演示程序配置. 通过 toml / yaml / json 读取.
type Config struct {
	Pool     PoolConfig     `toml:"pool" yaml:"pool" json:"pool"`
	Pipeline PipelineConfig `toml:"pipeline" yaml:"pipeline" json:"pipeline"`
	Log      xlog.Config    `toml:"log" yaml:"log" json:"log"`
	HTTP     HTTPConfig     `toml:"http" yaml:"http" json:"http"`
	Consul   ConsulConfig   `toml:"consul" yaml:"consul" json:"consul"`
}

type PoolConfig struct {
	BufferCount int `toml:"buffer_count" yaml:"buffer_count" json:"buffer_count"`
	BufferSize  int `toml:"buffer_size" yaml:"buffer_size" json:"buffer_size"`
}

type PipelineConfig struct {
	Frames       int64 `toml:"frames" yaml:"frames" json:"frames"` // 0: run until stopped
	Producers    int   `toml:"producers" yaml:"producers" json:"producers"`
	Consumers    int   `toml:"consumers" yaml:"consumers" json:"consumers"`
	FrameSize    int   `toml:"frame_size" yaml:"frame_size" json:"frame_size"` // 0: whole buffer
	PopTimeoutMs int   `toml:"pop_timeout_ms" yaml:"pop_timeout_ms" json:"pop_timeout_ms"`
}

type HTTPConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
	Listen  string `toml:"listen" yaml:"listen" json:"listen"`
}

type ConsulConfig struct {
	Addr        string `toml:"addr" yaml:"addr" json:"addr"` // empty: no registration
	ServiceName string `toml:"service_name" yaml:"service_name" json:"service_name"`
}

func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			BufferCount: xbuffer.DefaultBufferCount,
			BufferSize:  xbuffer.DefaultBufferSize,
		},
		Pipeline: PipelineConfig{
			Producers:    1,
			Consumers:    1,
			PopTimeoutMs: 1000,
		},
		Log: xlog.Config{
			Level:   "info",
			Console: true,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Listen:  "127.0.0.1:13000",
		},
		Consul: ConsulConfig{
			ServiceName: "framepipe",
		},
	}
}

// Load reads path over the defaults; the format follows the extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := Default()
	if err := Decode(filepath.Ext(path), data, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode unmarshals data in the format named by ext (".toml", ".yaml",
// ".yml" or ".json") into cfg.
func Decode(ext string, data []byte, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yaml", ".yml":
		return yaml.UnmarshalStrict(data, cfg)
	case ".json":
		return json.Unmarshal(data, cfg)
	}
	return errors.Wrapf(ErrUnknownFormat, "extension %q", ext)
}

func (c *Config) Validate() error {
	if c.Pool.BufferCount <= 0 {
		return errors.Wrapf(ErrInvalid, "pool.buffer_count %d", c.Pool.BufferCount)
	}
	if c.Pool.BufferSize <= 0 {
		return errors.Wrapf(ErrInvalid, "pool.buffer_size %d", c.Pool.BufferSize)
	}
	if c.Pipeline.Producers <= 0 || c.Pipeline.Consumers <= 0 {
		return errors.Wrapf(ErrInvalid, "pipeline needs producers and consumers, got %d/%d",
			c.Pipeline.Producers, c.Pipeline.Consumers)
	}
	if c.Pipeline.FrameSize < 0 || c.Pipeline.FrameSize > c.Pool.BufferSize {
		return errors.Wrapf(ErrInvalid, "pipeline.frame_size %d outside (0, %d]",
			c.Pipeline.FrameSize, c.Pool.BufferSize)
	}
	if c.Pipeline.Frames < 0 {
		return errors.Wrapf(ErrInvalid, "pipeline.frames %d", c.Pipeline.Frames)
	}
	if c.HTTP.Enabled && c.HTTP.Listen == "" {
		return errors.Wrap(ErrInvalid, "http.listen is empty")
	}
	if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	return nil
}
