package scribe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when no config file is given
	DefaultConfigPath = "scribe.yml"
	DefaultBaseURL    = "http://localhost:8000"
	DefaultTokenKey   = "token"
	DefaultLoginRoute = "/login"
	DefaultUserAgent  = "go-scribe"

	StoreDriverMemory = "memory"
	StoreDriverFile   = "file"
	StoreDriverRedis  = "redis"
	StoreDriverSQLite = "sqlite"
)

// Options is the default Config implementation
type Options struct {
	BaseURL    string        `yaml:"base_url"`
	TokenKey   string        `yaml:"token_key"`
	LoginRoute string        `yaml:"login_route"`
	UserAgent  string        `yaml:"user_agent"`
	Debug      bool          `yaml:"debug"`
	Store      StoreOptions  `yaml:"store"`
	Verify     VerifyOptions `yaml:"verify"`
}

// StoreOptions selects and configures the token store
type StoreOptions struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
}

// VerifyOptions enables signature verification of stored credentials
type VerifyOptions struct {
	JWKSURL    string `yaml:"jwks_url"`
	SigningKey string `yaml:"signing_key"`
}

var _ Config = Options{}

// DefaultOptions returns options pointing at a local backend with an
// in-memory store.
func DefaultOptions() Options {
	return Options{
		BaseURL:    DefaultBaseURL,
		TokenKey:   DefaultTokenKey,
		LoginRoute: DefaultLoginRoute,
		UserAgent:  DefaultUserAgent,
		Store: StoreOptions{
			Driver: StoreDriverMemory,
		},
	}
}

// LoadOptions reads a YAML file, applies defaults and environment
// overrides. A missing file is not an error.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultConfigPath
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.NewDecoder(bytes.NewReader(raw)).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
			return opts, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return opts, fmt.Errorf("read config %s: %w", path, err)
	}

	opts = opts.withEnv(os.LookupEnv).withDefaults()
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid config: %w", err)
	}
	return opts, nil
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if strings.TrimSpace(o.BaseURL) == "" {
		o.BaseURL = def.BaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.TokenKey == "" {
		o.TokenKey = def.TokenKey
	}
	if o.LoginRoute == "" {
		o.LoginRoute = def.LoginRoute
	}
	if o.UserAgent == "" {
		o.UserAgent = def.UserAgent
	}
	if o.Store.Driver == "" {
		o.Store.Driver = def.Store.Driver
	}
	o.Store.Driver = strings.ToLower(o.Store.Driver)
	return o
}

func (o Options) withEnv(lookup func(string) (string, bool)) Options {
	if v, ok := lookup("SCRIBE_API_URL"); ok && v != "" {
		o.BaseURL = v
	}
	if v, ok := lookup("SCRIBE_TOKEN_KEY"); ok && v != "" {
		o.TokenKey = v
	}
	if v, ok := lookup("SCRIBE_STORE_DRIVER"); ok && v != "" {
		o.Store.Driver = v
	}
	if v, ok := lookup("SCRIBE_STORE_PATH"); ok && v != "" {
		o.Store.Path = v
	}
	if v, ok := lookup("SCRIBE_REDIS_URL"); ok && v != "" {
		o.Store.RedisURL = v
	}
	if v, ok := lookup("SCRIBE_JWKS_URL"); ok && v != "" {
		o.Verify.JWKSURL = v
	}
	if v, ok := lookup("SCRIBE_DEBUG"); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			o.Debug = b
		}
	}
	return o
}

// Validate will run validation rules
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.BaseURL, validation.Required, is.URL),
		validation.Field(&o.TokenKey, validation.Required),
		validation.Field(&o.Store),
		validation.Field(&o.Verify),
	)
}

// Validate will run validation rules
func (s StoreOptions) Validate() error {
	pathRules := []validation.Rule{}
	if s.Driver == StoreDriverFile || s.Driver == StoreDriverSQLite {
		pathRules = append(pathRules, validation.Required)
	}

	redisRules := []validation.Rule{}
	if s.Driver == StoreDriverRedis {
		redisRules = append(redisRules, validation.Required)
	}

	return validation.ValidateStruct(&s,
		validation.Field(
			&s.Driver,
			validation.Required,
			validation.In(StoreDriverMemory, StoreDriverFile, StoreDriverRedis, StoreDriverSQLite),
		),
		validation.Field(&s.Path, pathRules...),
		validation.Field(&s.RedisURL, redisRules...),
	)
}

// Validate will run validation rules
func (v VerifyOptions) Validate() error {
	return validation.ValidateStruct(&v,
		validation.Field(&v.JWKSURL, is.URL),
	)
}

func (o Options) GetBaseURL() string     { return o.BaseURL }
func (o Options) GetTokenKey() string    { return o.TokenKey }
func (o Options) GetLoginRoute() string  { return o.LoginRoute }
func (o Options) GetStoreDriver() string { return o.Store.Driver }
func (o Options) GetStorePath() string   { return o.Store.Path }
func (o Options) GetRedisURL() string    { return o.Store.RedisURL }
func (o Options) GetJWKSURL() string     { return o.Verify.JWKSURL }
func (o Options) GetSigningKey() string  { return o.Verify.SigningKey }
func (o Options) GetUserAgent() string   { return o.UserAgent }
func (o Options) GetDebug() bool         { return o.Debug }
