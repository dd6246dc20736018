package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// DefaultMaxMessageSize lifts the 4 MiB gRPC default so a Rank response
// can carry the vocabulary of a book-sized corpus.
const DefaultMaxMessageSize = 64 * 1024 * 1024

var (
	ErrUnknownStorage  = errors.New("unknown storage kind")
	ErrUnknownFormat   = errors.New("unknown sink format")
	ErrUnknownOverflow = errors.New("unknown overflow policy")
)

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Pipeline struct {
	Lanes      int    `yaml:"lanes"`
	LaneBuffer int    `yaml:"lane_buffer"`
	Workers    int    `yaml:"workers"`
	PadWidth   int    `yaml:"pad_width"`
	Overflow   string `yaml:"overflow"`
}

type Storage struct {
	Kind         string `yaml:"kind"`
	Root         string `yaml:"root"`
	S3Endpoint   string `yaml:"s3_endpoint"`
	AccessKey    string `yaml:"access_key"`
	AccessSecret string `yaml:"access_secret"`
	UseSSL       bool   `yaml:"use_ssl"`
	TaskBucket   string `yaml:"task_bucket"`
	ResultBucket string `yaml:"result_bucket"`
	ResultPrefix string `yaml:"result_prefix"`
}

type Sink struct {
	Format string `yaml:"format"`
	Buffer int    `yaml:"buffer"`
}

type Config struct {
	Network        string `yaml:"network"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxMessageSize int    `yaml:"max_message_size"` // bytes, bounds gRPC messages both ways

	Log       Log      `yaml:"log"`
	Pipeline  Pipeline `yaml:"pipeline"`
	Tokenizer struct {
		Plugin struct {
			Enabled bool   `yaml:"enabled"`
			Path    string `yaml:"path"`
		} `yaml:"plugin"`
	} `yaml:"tokenizer"`
	Snowflake struct {
		NodeID int64 `yaml:"node_id"`
	} `yaml:"snowflake"`
	Storage Storage `yaml:"storage"`
	Sink    Sink    `yaml:"sink"`
}

// Default returns the configuration used for every field a file leaves out.
func Default() *Config {
	c := new(Config)
	c.Network = "tcp"
	c.Host = "127.0.0.1"
	c.Port = 9527
	c.MaxMessageSize = DefaultMaxMessageSize
	c.Log = Log{Level: "info", Format: "json"}
	c.Pipeline = Pipeline{LaneBuffer: 256, PadWidth: 4, Overflow: "widen"}
	c.Snowflake.NodeID = 1
	c.Storage = Storage{Kind: "local", Root: ".", ResultPrefix: "wordfreq-"}
	c.Sink = Sink{Format: "tsv", Buffer: 4096}
	return c
}

// Load reads filename over c, fields absent from the file keep their value.
func Load(filename string, c *Config) error {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if err = yaml.Unmarshal(bytes, c); err != nil {
		return err
	}
	return c.Validate()
}

// StorageKind returns the canonical name of a storage kind, an empty kind
// is local.
func StorageKind(kind string) (string, error) {
	switch strings.ToLower(kind) {
	case "", "local":
		return "local", nil
	case "s3":
		return "s3", nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownStorage, kind)
	}
}

// SinkFormat returns the canonical name of a sink format, an empty format
// is tsv and jsonl is json.
func SinkFormat(format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "tsv":
		return "tsv", nil
	case "json", "jsonl":
		return "json", nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}

func (c *Config) Validate() error {
	kind, err := StorageKind(c.Storage.Kind)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if kind == "s3" {
		if c.Storage.S3Endpoint == "" {
			return errors.New("config: storage.s3_endpoint is required for s3 storage")
		}
		if c.Storage.TaskBucket == "" || c.Storage.ResultBucket == "" {
			return errors.New("config: storage.task_bucket and storage.result_bucket are required for s3 storage")
		}
	}

	if _, err = SinkFormat(c.Sink.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(c.Pipeline.Overflow) {
	case "", "widen", "fail":
	default:
		return fmt.Errorf("config: %w %q", ErrUnknownOverflow, c.Pipeline.Overflow)
	}

	if c.MaxMessageSize < 0 {
		return errors.New("config: max_message_size must not be negative")
	}
	if c.Pipeline.PadWidth < 1 {
		return errors.New("config: pipeline.pad_width must be positive")
	}
	if c.Tokenizer.Plugin.Enabled && c.Tokenizer.Plugin.Path == "" {
		return errors.New("config: tokenizer.plugin.path is required when the plugin is enabled")
	}
	return nil
}
