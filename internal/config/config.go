// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads accountd configuration from flags, an optional YAML
// file and secret environment variables.
package config

import (
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// Environment variables holding secrets. They override file and flag values.
const (
	EnvDatabaseURL  = "DATABASE_URL"
	EnvTokenSecret  = "TOKEN_SECRET"
	EnvSMTPPassword = "SMTP_PASSWORD"
)

const redacted = "<redacted>"

// Mail transports.
const (
	MailSMTP  = "smtp"
	MailKafka = "kafka"
	MailLog   = "log"
)

// Avatar storage backends.
const (
	AvatarsLocal = "local"
	AvatarsS3    = "s3"
)

// Config is the complete accountd configuration.
type Config struct {
	HTTPAddr       string        `koanf:"http-addr" yaml:"http-addr" json:"http-addr,omitempty"`
	MetricsAddr    string        `koanf:"metrics-addr" yaml:"metrics-addr" json:"metrics-addr,omitempty"`
	PublicBaseURL  string        `koanf:"public-base-url" yaml:"public-base-url" json:"public-base-url,omitempty" jsonschema:"format=uri"`
	DatabaseURL    string        `koanf:"database-url" yaml:"database-url" json:"database-url,omitempty"`
	AutoMigrate    bool          `koanf:"auto-migrate" yaml:"auto-migrate" json:"auto-migrate,omitempty"`
	RequestTimeout time.Duration `koanf:"request-timeout" yaml:"request-timeout" json:"request-timeout,omitempty"`
	LogLevel       string        `koanf:"log-level" yaml:"log-level" json:"log-level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	LogFormat      string        `koanf:"log-format" yaml:"log-format" json:"log-format,omitempty" jsonschema:"enum=json,enum=text"`

	Token     TokenConfig     `koanf:"token" yaml:"token" json:"token,omitempty"`
	Mail      MailConfig      `koanf:"mail" yaml:"mail" json:"mail,omitempty"`
	Avatars   AvatarConfig    `koanf:"avatars" yaml:"avatars" json:"avatars,omitempty"`
	RateLimit RateLimitConfig `koanf:"rate-limit" yaml:"rate-limit" json:"rate-limit,omitempty"`
}

// TokenConfig configures session tokens.
type TokenConfig struct {
	Secret string        `koanf:"secret" yaml:"secret" json:"secret,omitempty"`
	TTL    time.Duration `koanf:"ttl" yaml:"ttl" json:"ttl,omitempty"`
}

// MailConfig selects and configures the verification mail transport.
type MailConfig struct {
	Transport string        `koanf:"transport" yaml:"transport" json:"transport,omitempty" jsonschema:"enum=smtp,enum=kafka,enum=log"`
	From      string        `koanf:"from" yaml:"from" json:"from,omitempty"`
	Timeout   time.Duration `koanf:"timeout" yaml:"timeout" json:"timeout,omitempty"`
	SMTP      SMTPConfig    `koanf:"smtp" yaml:"smtp" json:"smtp,omitempty"`
	Kafka     KafkaConfig   `koanf:"kafka" yaml:"kafka" json:"kafka,omitempty"`
}

// SMTPConfig configures the SMTP transport.
type SMTPConfig struct {
	Host     string `koanf:"host" yaml:"host" json:"host,omitempty"`
	Port     int    `koanf:"port" yaml:"port" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	Username string `koanf:"username" yaml:"username" json:"username,omitempty"`
	Password string `koanf:"password" yaml:"password" json:"password,omitempty"`
}

// KafkaConfig configures the Kafka transport.
type KafkaConfig struct {
	Brokers []string `koanf:"brokers" yaml:"brokers" json:"brokers,omitempty"`
	Topic   string   `koanf:"topic" yaml:"topic" json:"topic,omitempty"`
}

// AvatarConfig selects and configures avatar storage.
type AvatarConfig struct {
	Backend string         `koanf:"backend" yaml:"backend" json:"backend,omitempty" jsonschema:"enum=local,enum=s3"`
	Dir     string         `koanf:"dir" yaml:"dir" json:"dir,omitempty"`
	S3      S3AvatarConfig `koanf:"s3" yaml:"s3" json:"s3,omitempty"`
}

// S3AvatarConfig configures the S3 avatar backend. Empty credentials fall
// back to the default AWS credential chain.
type S3AvatarConfig struct {
	Bucket          string `koanf:"bucket" yaml:"bucket" json:"bucket,omitempty"`
	Region          string `koanf:"region" yaml:"region" json:"region,omitempty"`
	Endpoint        string `koanf:"endpoint" yaml:"endpoint" json:"endpoint,omitempty"`
	PublicURL       string `koanf:"public-url" yaml:"public-url" json:"public-url,omitempty"`
	AccessKeyID     string `koanf:"access-key-id" yaml:"access-key-id" json:"access-key-id,omitempty"`
	SecretAccessKey string `koanf:"secret-access-key" yaml:"secret-access-key" json:"secret-access-key,omitempty"`
}

// RateLimitConfig limits unauthenticated auth requests per client IP.
// Zero Requests disables limiting.
type RateLimitConfig struct {
	Requests int           `koanf:"requests" yaml:"requests" json:"requests,omitempty" jsonschema:"minimum=0"`
	Window   time.Duration `koanf:"window" yaml:"window" json:"window,omitempty"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTPAddr:       ":3000",
		MetricsAddr:    "127.0.0.1:9100",
		PublicBaseURL:  "http://localhost:3000",
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
		LogFormat:      "json",
		Token: TokenConfig{
			TTL: time.Hour,
		},
		Mail: MailConfig{
			Transport: MailLog,
			From:      "no-reply@localhost",
			Timeout:   15 * time.Second,
			SMTP:      SMTPConfig{Port: 587},
			Kafka:     KafkaConfig{Topic: "accountd.verification-email"},
		},
		Avatars: AvatarConfig{
			Backend: AvatarsLocal,
			Dir:     "public/avatars",
		},
		RateLimit: RateLimitConfig{
			Requests: 20,
			Window:   time.Minute,
		},
	}
}

// RegisterFlags adds the top-level settings to fs with their defaults.
// Nested sections are configured through the YAML file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTPAddr, "HTTP API listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics and health listen address (empty to disable)")
	fs.String("public-base-url", d.PublicBaseURL, "externally visible base URL used in verification links")
	fs.String("database-url", "", "PostgreSQL connection URL (prefer $"+EnvDatabaseURL+")")
	fs.Bool("auto-migrate", d.AutoMigrate, "apply pending migrations on startup")
	fs.Duration("request-timeout", d.RequestTimeout, "per-request timeout")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "log format (json, text)")
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Flags registered with RegisterFlags. Optional.
	Flags *pflag.FlagSet
	// File is an optional YAML file path.
	File string
	// Getenv looks up secrets. Defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds a Config. Precedence, lowest first: defaults, YAML file,
// explicitly set flags, secret environment variables.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("file", opts.File).Wrap(err)
		}
		if err := ValidateYAML(data); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").With("file", opts.File).Wrap(err)
		}
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("file", opts.File).Wrap(err)
		}
	}

	if opts.Flags != nil {
		// Unchanged flags do not override keys already loaded from the file.
		if err := k.Load(posflag.Provider(opts.Flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for env, key := range map[string]string{
		EnvDatabaseURL:  "database-url",
		EnvTokenSecret:  "token.secret",
		EnvSMTPPassword: "mail.smtp.password",
	} {
		if v := getenv(env); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, oops.Code("CONFIG_ENV_FAILED").With("env", env).Wrap(err)
			}
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	return &cfg, nil
}

// Validate checks settings required to serve.
func (c *Config) Validate() error {
	invalid := func(key, reason string) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s: %s", key, reason)
	}

	if c.DatabaseURL == "" {
		return invalid("database-url", "is required (set $"+EnvDatabaseURL+")")
	}
	if len(c.Token.Secret) < 16 {
		return invalid("token.secret", "must be at least 16 bytes (set $"+EnvTokenSecret+")")
	}
	if c.Token.TTL <= 0 {
		return invalid("token.ttl", "must be positive")
	}
	if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("public-base-url", "must be an absolute URL")
	}
	if c.RequestTimeout <= 0 {
		return invalid("request-timeout", "must be positive")
	}

	switch c.Mail.Transport {
	case MailLog:
	case MailSMTP:
		if c.Mail.SMTP.Host == "" {
			return invalid("mail.smtp.host", "is required for the smtp transport")
		}
		if c.Mail.From == "" {
			return invalid("mail.from", "is required for the smtp transport")
		}
	case MailKafka:
		if len(c.Mail.Kafka.Brokers) == 0 {
			return invalid("mail.kafka.brokers", "is required for the kafka transport")
		}
		if c.Mail.Kafka.Topic == "" {
			return invalid("mail.kafka.topic", "is required for the kafka transport")
		}
	default:
		return invalid("mail.transport", "must be one of smtp, kafka, log")
	}

	switch c.Avatars.Backend {
	case AvatarsLocal:
		if c.Avatars.Dir == "" {
			return invalid("avatars.dir", "is required for the local backend")
		}
	case AvatarsS3:
		if c.Avatars.S3.Bucket == "" {
			return invalid("avatars.s3.bucket", "is required for the s3 backend")
		}
		if c.Avatars.S3.Region == "" {
			return invalid("avatars.s3.region", "is required for the s3 backend")
		}
	default:
		return invalid("avatars.backend", "must be one of local, s3")
	}

	if c.RateLimit.Requests < 0 {
		return invalid("rate-limit.requests", "must not be negative")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return invalid("rate-limit.window", "must be positive when rate limiting is enabled")
	}
	return nil
}

// Redacted returns a copy with secrets masked.
func (c Config) Redacted() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	if c.DatabaseURL != "" {
		if u, err := url.Parse(c.DatabaseURL); err == nil && u.User != nil {
			c.DatabaseURL = u.Redacted()
		} else {
			c.DatabaseURL = redacted
		}
	}
	mask(&c.Token.Secret)
	mask(&c.Mail.SMTP.Password)
	mask(&c.Avatars.S3.SecretAccessKey)
	c.Mail.Kafka.Brokers = append([]string(nil), c.Mail.Kafka.Brokers...)
	return c
}

// YAML renders the configuration with secrets redacted.
func (c Config) YAML() ([]byte, error) {
	data, err := yamlv3.Marshal(c.Redacted())
	if err != nil {
		return nil, oops.Code("CONFIG_MARSHAL_FAILED").Wrap(err)
	}
	return data, nil
}
