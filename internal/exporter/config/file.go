package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/exporter3/internal/flagx"
	"github.com/dmitrijs2005/exporter3/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// "1s" style strings or integer nanoseconds. Zero values leave the current
// setting untouched.
type FileConfig struct {
	EndpointAddrGRPC string `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn" yaml:"database_dsn"`
	InMemory         bool   `json:"in_memory" yaml:"in_memory"`

	S3AccessKey    string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Region       string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	StagingBucket  string `json:"staging_bucket" yaml:"staging_bucket"`
	RawDataBucket  string `json:"raw_data_bucket" yaml:"raw_data_bucket"`

	TimeZone string `json:"time_zone" yaml:"time_zone"`
	KeysDir  string `json:"keys_dir" yaml:"keys_dir"`

	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`
	QueueStream   string `json:"queue_stream" yaml:"queue_stream"`
	QueueGroup    string `json:"queue_group" yaml:"queue_group"`
	QueueConsumer string `json:"queue_consumer" yaml:"queue_consumer"`

	Workers        int            `json:"workers" yaml:"workers"`
	DispatchRate   float64        `json:"dispatch_rate" yaml:"dispatch_rate"`
	BatchSize      int            `json:"batch_size" yaml:"batch_size"`
	LeaseTTL       timex.Duration `json:"lease_ttl" yaml:"lease_ttl"`
	RedeliverAfter timex.Duration `json:"redeliver_after" yaml:"redeliver_after"`

	PollAttempts int            `json:"poll_attempts" yaml:"poll_attempts"`
	PollDelay    timex.Duration `json:"poll_delay" yaml:"poll_delay"`

	OperatorToken string `json:"operator_token" yaml:"operator_token"`
	LogLevel      string `json:"log_level" yaml:"log_level"`
}

// parseFile overlays the file named by -c / -config, if any. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, fc)
	default:
		err = json.Unmarshal(raw, fc)
	}
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	set(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	set(&c.DatabaseDSN, fc.DatabaseDSN)
	c.InMemory = c.InMemory || fc.InMemory
	set(&c.S3AccessKey, fc.S3AccessKey)
	set(&c.S3SecretKey, fc.S3SecretKey)
	set(&c.S3Region, fc.S3Region)
	set(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	set(&c.StagingBucket, fc.StagingBucket)
	set(&c.RawDataBucket, fc.RawDataBucket)
	set(&c.TimeZone, fc.TimeZone)
	set(&c.KeysDir, fc.KeysDir)
	set(&c.RedisAddr, fc.RedisAddr)
	set(&c.RedisPassword, fc.RedisPassword)
	set(&c.RedisDB, fc.RedisDB)
	set(&c.QueueStream, fc.QueueStream)
	set(&c.QueueGroup, fc.QueueGroup)
	set(&c.QueueConsumer, fc.QueueConsumer)
	set(&c.Workers, fc.Workers)
	set(&c.DispatchRate, fc.DispatchRate)
	set(&c.BatchSize, fc.BatchSize)
	set(&c.LeaseTTL, fc.LeaseTTL.Duration)
	set(&c.RedeliverAfter, fc.RedeliverAfter.Duration)
	set(&c.PollAttempts, fc.PollAttempts)
	set(&c.PollDelay, fc.PollDelay.Duration)
	set(&c.OperatorToken, fc.OperatorToken)
	set(&c.LogLevel, fc.LogLevel)
}

func set[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
