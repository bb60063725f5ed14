package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type config struct {
	HTTP      httpConfig      `koanf:"http"`
	Room      roomConfig      `koanf:"room"`
	Admission admissionConfig `koanf:"admission"`
	Store     storeConfig     `koanf:"store"`
	Create    createConfig    `koanf:"create"`
	Stats     statsConfig     `koanf:"stats"`
	Log       logConfig       `koanf:"log"`
	Metrics   metricsConfig   `koanf:"metrics"`
}

type httpConfig struct {
	ListenAddr        string        `koanf:"listen_addr"`
	UpstreamURL       string        `koanf:"upstream_url"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

type roomConfig struct {
	Capacity     int           `koanf:"capacity"`
	TTL          time.Duration `koanf:"ttl"`
	CookieName   string        `koanf:"cookie_name"`
	SecureCookie bool          `koanf:"secure_cookie"`
	TokenLength  int           `koanf:"token_length"`
}

type admissionConfig struct {
	Mode            string        `koanf:"mode"`
	StoreTimeout    time.Duration `koanf:"store_timeout"`
	MaxInFlight     int           `koanf:"max_in_flight"`
	InFlightTimeout time.Duration `koanf:"in_flight_timeout"`
}

type storeConfig struct {
	Driver        string `koanf:"driver"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	KeyPrefix     string `koanf:"key_prefix"`
}

type createConfig struct {
	RPS        float64       `koanf:"rps"`
	Burst      int           `koanf:"burst"`
	KeyHeader  string        `koanf:"key_header"`
	TrustXFF   bool          `koanf:"trust_xff"`
	RetryAfter time.Duration `koanf:"retry_after"`
}

type statsConfig struct {
	Enabled bool          `koanf:"enabled"`
	Prefix  string        `koanf:"prefix"`
	TTL     time.Duration `koanf:"ttl"`
	Bucket  string        `koanf:"bucket"`
}

type logConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

type metricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// configPath: flag -config, depois ROOM_GATEWAY_CONFIG. Vazio = só defaults + env.
func configPath(args []string) string {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	path := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	if *path != "" {
		return *path
	}
	return os.Getenv("ROOM_GATEWAY_CONFIG")
}

func loadConfig(path string) (config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return config{}, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.listen_addr", ":8080")
	setDefault(k, "http.upstream_url", "")
	setDefault(k, "http.read_header_timeout", 10*time.Second)
	setDefault(k, "http.read_timeout", 30*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.idle_timeout", 90*time.Second)

	setDefault(k, "room.capacity", 2)
	setDefault(k, "room.ttl", 600*time.Second)
	setDefault(k, "room.cookie_name", "x-auth-token")
	setDefault(k, "room.secure_cookie", true)
	setDefault(k, "room.token_length", 21)

	setDefault(k, "admission.mode", "atomic")
	setDefault(k, "admission.store_timeout", 2*time.Second)
	setDefault(k, "admission.max_in_flight", 0)
	setDefault(k, "admission.in_flight_timeout", 0)

	setDefault(k, "store.driver", "redis")
	setDefault(k, "store.redis_addr", "localhost:6379")
	setDefault(k, "store.redis_db", 0)
	setDefault(k, "store.key_prefix", "")

	setDefault(k, "create.rps", 1.0)
	setDefault(k, "create.burst", 5)
	setDefault(k, "create.retry_after", 1*time.Second)

	setDefault(k, "stats.enabled", false)
	setDefault(k, "stats.prefix", "room:stats")
	setDefault(k, "stats.ttl", 24*time.Hour)
	setDefault(k, "stats.bucket", "minute")

	setDefault(k, "log.level", "info")
	setDefault(k, "log.development", false)

	setDefault(k, "metrics.enabled", true)
	setDefault(k, "metrics.path", "/metrics")
}

// applyEnvOverrides: variáveis de ambiente ganham do arquivo.
func applyEnvOverrides(k *koanf.Koanf) {
	overrideString(k, "LISTEN_ADDR", "http.listen_addr")
	overrideString(k, "UPSTREAM_URL", "http.upstream_url")

	overrideInt(k, "ROOM_CAPACITY", "room.capacity")
	overrideDuration(k, "ROOM_TTL", "room.ttl")
	overrideString(k, "ROOM_COOKIE_NAME", "room.cookie_name")
	overrideBool(k, "ROOM_SECURE_COOKIE", "room.secure_cookie")

	overrideString(k, "ADMISSION_MODE", "admission.mode")
	overrideDuration(k, "ADMISSION_STORE_TIMEOUT", "admission.store_timeout")
	overrideInt(k, "ADMISSION_MAX_IN_FLIGHT", "admission.max_in_flight")
	overrideDuration(k, "ADMISSION_IN_FLIGHT_TIMEOUT", "admission.in_flight_timeout")

	overrideString(k, "STORE_DRIVER", "store.driver")
	overrideString(k, "REDIS_ADDR", "store.redis_addr")
	overrideString(k, "REDIS_PASSWORD", "store.redis_password")
	overrideInt(k, "REDIS_DB", "store.redis_db")
	overrideString(k, "STORE_KEY_PREFIX", "store.key_prefix")

	overrideFloat(k, "CREATE_RPS", "create.rps")
	overrideInt(k, "CREATE_BURST", "create.burst")
	overrideString(k, "CREATE_KEY_HEADER", "create.key_header")
	overrideBool(k, "TRUST_XFF", "create.trust_xff")

	overrideBool(k, "STATS_ENABLED", "stats.enabled")
	overrideString(k, "STATS_PREFIX", "stats.prefix")
	overrideDuration(k, "STATS_TTL", "stats.ttl")
	overrideString(k, "STATS_BUCKET", "stats.bucket")

	overrideString(k, "LOG_LEVEL", "log.level")
	overrideBool(k, "LOG_DEVELOPMENT", "log.development")

	overrideBool(k, "METRICS_ENABLED", "metrics.enabled")
}

func (c config) validate() error {
	if c.Room.Capacity <= 0 {
		return errors.New("room.capacity must be > 0")
	}
	if c.Room.TTL < time.Second {
		return errors.New("room.ttl must be >= 1s")
	}
	switch c.Admission.Mode {
	case "atomic", "optimistic":
	default:
		return fmt.Errorf("admission.mode must be atomic or optimistic, got %q", c.Admission.Mode)
	}
	switch c.Store.Driver {
	case "redis":
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			return errors.New("store.redis_addr is required when store.driver=redis")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be redis or memory, got %q", c.Store.Driver)
	}
	if c.Stats.Enabled && c.Store.Driver != "redis" {
		return errors.New("stats.enabled requires store.driver=redis")
	}
	if c.Create.RPS <= 0 {
		return errors.New("create.rps must be > 0")
	}
	if c.Create.Burst <= 0 {
		return errors.New("create.burst must be > 0")
	}
	if c.Admission.MaxInFlight < 0 {
		return errors.New("admission.max_in_flight must be >= 0")
	}
	return nil
}

// setDefault só grava se a chave não veio do arquivo.
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		_ = k.Set(key, value)
	}
}

func overrideString(k *koanf.Koanf, env, key string) {
	if v := os.Getenv(env); v != "" {
		_ = k.Set(key, v)
	}
}

func overrideInt(k *koanf.Koanf, env, key string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	if i, err := strconv.Atoi(v); err == nil {
		_ = k.Set(key, i)
	}
}

func overrideFloat(k *koanf.Koanf, env, key string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		_ = k.Set(key, f)
	}
}

func overrideBool(k *koanf.Koanf, env, key string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		_ = k.Set(key, b)
	}
}

func overrideDuration(k *koanf.Koanf, env, key string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		_ = k.Set(key, d)
	}
}
