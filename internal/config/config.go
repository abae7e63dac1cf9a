// Package config loads runtime settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// a .env file, then ACTIVID_* environment variables. The CLI applies
// explicitly set flags last.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ACTIVID_"

// Config holds runtime settings for the activid server and CLI.
type Config struct {
	HTTP           HTTPConfig     `yaml:"http"`
	InvitationsDir string         `yaml:"invitations_dir" validate:"required"`
	Store          StoreConfig    `yaml:"store"`
	Live           LiveConfig     `yaml:"live"`
	Photos         PhotosConfig   `yaml:"photos"`
	WhatsApp       WhatsAppConfig `yaml:"whatsapp"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr        string   `yaml:"addr" validate:"required"`
	BaseURL     string   `yaml:"base_url" validate:"required,url"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// StoreConfig selects and configures the wish store.
type StoreConfig struct {
	Driver         string `yaml:"driver" validate:"oneof=sqlite postgres dynamodb memory"`
	SQLitePath     string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	PostgresDSN    string `yaml:"postgres_dsn" validate:"required_if=Driver postgres"`
	DynamoTable    string `yaml:"dynamo_table" validate:"required_if=Driver dynamodb"`
	DynamoRegion   string `yaml:"dynamo_region"`
	DynamoEndpoint string `yaml:"dynamo_endpoint"`
}

// LiveConfig configures live wish updates.
type LiveConfig struct {
	Driver        string        `yaml:"driver" validate:"oneof=local redis"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=Driver redis"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
	PollInterval  time.Duration `yaml:"poll_interval" validate:"gte=0"`
}

// PhotosConfig configures the photo library. Without a bucket, photo pools
// are served as configured URLs.
type PhotosConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Bucket     string        `yaml:"bucket"`
	Region     string        `yaml:"region"`
	Endpoint   string        `yaml:"endpoint"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	PresignTTL time.Duration `yaml:"presign_ttl" validate:"gte=0"`
}

// WhatsAppConfig configures link delivery over WhatsApp.
type WhatsAppConfig struct {
	DataDir string `yaml:"data_dir"`
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:    ":8080",
			BaseURL: "http://localhost:8080",
		},
		InvitationsDir: "invitations",
		Store: StoreConfig{
			Driver:       "sqlite",
			SQLitePath:   "activid.db",
			DynamoRegion: "ap-southeast-1",
		},
		Live: LiveConfig{
			Driver:       "local",
			PollInterval: 30 * time.Second,
		},
		Photos: PhotosConfig{
			Region:     "ap-southeast-1",
			PresignTTL: 15 * time.Minute,
		},
		WhatsApp: WhatsAppConfig{DataDir: "."},
	}
}

// Load builds a Config from defaults, the YAML file at path (optional),
// the .env file in the working directory (optional) and the environment.
func Load(path string) (*Config, error) {
	return LoadWith(path, ".env", os.LookupEnv)
}

// LoadWith is Load with an explicit .env path and environment lookup.
// Variables from envFile never override ones already in the environment.
func LoadWith(path, envFile string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		dotenv, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		lookup = withFallback(lookup, dotenv)
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withFallback(lookup func(string) (string, bool), vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}
}

type binding struct {
	name   string
	target any
}

func (c *Config) bindings() []binding {
	return []binding{
		{"HTTP_ADDR", &c.HTTP.Addr},
		{"BASE_URL", &c.HTTP.BaseURL},
		{"CORS_ORIGINS", &c.HTTP.CORSOrigins},
		{"INVITATIONS_DIR", &c.InvitationsDir},
		{"STORE_DRIVER", &c.Store.Driver},
		{"SQLITE_PATH", &c.Store.SQLitePath},
		{"POSTGRES_DSN", &c.Store.PostgresDSN},
		{"DYNAMO_TABLE", &c.Store.DynamoTable},
		{"DYNAMO_REGION", &c.Store.DynamoRegion},
		{"DYNAMO_ENDPOINT", &c.Store.DynamoEndpoint},
		{"LIVE_DRIVER", &c.Live.Driver},
		{"REDIS_ADDR", &c.Live.RedisAddr},
		{"REDIS_PASSWORD", &c.Live.RedisPassword},
		{"REDIS_DB", &c.Live.RedisDB},
		{"POLL_INTERVAL", &c.Live.PollInterval},
		{"PHOTOS_BASE_URL", &c.Photos.BaseURL},
		{"S3_BUCKET", &c.Photos.Bucket},
		{"S3_REGION", &c.Photos.Region},
		{"S3_ENDPOINT", &c.Photos.Endpoint},
		{"S3_ACCESS_KEY", &c.Photos.AccessKey},
		{"S3_SECRET_KEY", &c.Photos.SecretKey},
		{"PRESIGN_TTL", &c.Photos.PresignTTL},
		{"WHATSAPP_DATA_DIR", &c.WhatsApp.DataDir},
	}
}

// EnvNames lists every environment variable Load reads.
func EnvNames() []string {
	var c Config
	bs := c.bindings()
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = EnvPrefix + b.name
	}
	return names
}

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	for _, b := range c.bindings() {
		name := EnvPrefix + b.name
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		if err := setValue(b.target, raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func setValue(target any, raw string) error {
	switch t := target.(type) {
	case *string:
		*t = raw
	case *int:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		*t = n
	case *time.Duration:
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid duration %q", raw)
		}
		*t = d
	case *[]string:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*t = out
	default:
		return fmt.Errorf("unsupported target %T", target)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the settings required by the selected drivers.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
