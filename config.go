package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"justapengu.in/telemetry/internal/capture"
	"justapengu.in/telemetry/internal/tail"
	"justapengu.in/telemetry/internal/transport"
	"justapengu.in/telemetry/pkg/f1"
)

type Config struct {
	Listener ListenerConfig `json:"listener" yaml:"listener"`
	Capture  CaptureConfig  `json:"capture" yaml:"capture"`
	Replay   ReplayConfig   `json:"replay" yaml:"replay"`
	HTTP     HTTPConfig     `json:"http" yaml:"http"`

	// TailSize is the number of raw packets kept for crash diagnostics.
	TailSize  int    `json:"tail_size" yaml:"tail_size"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
	SentryDSN string `json:"sentry_dsn" yaml:"sentry_dsn"`
}

type ListenerConfig struct {
	Port uint16 `json:"port" yaml:"port"`

	// PacketFormat is the game's packet format setting. Packets with a different format are
	// still decoded, but a warning is logged once per session.
	PacketFormat     uint16 `json:"packet_format" yaml:"packet_format"`
	SubscriberBuffer int    `json:"subscriber_buffer" yaml:"subscriber_buffer"`
}

type CaptureConfig struct {
	Directory   string `json:"directory" yaml:"directory"`
	QueueSize   int    `json:"queue_size" yaml:"queue_size"`
	CatalogPath string `json:"catalog_path" yaml:"catalog_path"`
}

type ReplayConfig struct {
	Pacing bool `json:"pacing" yaml:"pacing"`

	// ReportIntervalMillis spaces out packets replayed from a crash report, which carry no
	// timestamps of their own.
	ReportIntervalMillis int64 `json:"report_interval_ms" yaml:"report_interval_ms"`
}

type HTTPConfig struct {
	Address string `json:"address" yaml:"address"`
}

const defaultReportInterval = 500 * time.Millisecond

func DefaultConfig() *Config {
	return &Config{
		Listener: ListenerConfig{
			Port:             f1.DefaultPort,
			PacketFormat:     f1.DefaultPacketFormat,
			SubscriberBuffer: transport.DefaultSubscriberBuffer,
		},
		Capture: CaptureConfig{
			Directory:   "./captures",
			QueueSize:   capture.DefaultQueueSize,
			CatalogPath: "./captures/catalog.db",
		},
		Replay: ReplayConfig{
			Pacing:               true,
			ReportIntervalMillis: defaultReportInterval.Milliseconds(),
		},
		HTTP: HTTPConfig{
			Address: ":8090",
		},
		TailSize: tail.DefaultSize,
		LogLevel: logrus.InfoLevel.String(),
	}
}

// ReadConfig reads the yaml config at path. Values missing from the file keep their defaults.
func ReadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	f, err := os.Open(path)

	if err != nil {
		return nil, errors.Wrap(err, "telemetry: could not open config")
	}

	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(config); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "telemetry: could not decode config %s", path)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.TailSize < 1 {
		return errors.Errorf("telemetry: tail_size must be at least 1, got %d", c.TailSize)
	}

	if c.Replay.ReportIntervalMillis < 0 {
		return errors.Errorf("telemetry: report_interval_ms must not be negative, got %d", c.Replay.ReportIntervalMillis)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "telemetry: invalid log_level")
	}

	return nil
}

// Level returns the configured log level, or info if it is not valid.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)

	if err != nil {
		return logrus.InfoLevel
	}

	return level
}

func (c *Config) ReportInterval() time.Duration {
	return time.Duration(c.Replay.ReportIntervalMillis) * time.Millisecond
}
