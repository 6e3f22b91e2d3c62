// Package config binds process configuration from flags/env, mirroring
// the teacher's ENV_*/DEFAULT_* constant layout and parseFlags()
// validate-and-panic idiom, generalized to this service's env vars.
package config

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/Embucket/embucket-sub001/internal/embucketlog"
)

const (
	ENV_BIND_ADDRESS           = "BIND_ADDRESS"
	ENV_LOG_LEVEL              = "LOG_LEVEL"
	ENV_DATA_FORMAT            = "DATA_FORMAT"
	ENV_MAX_CONCURRENCY_LEVEL  = "MAX_CONCURRENCY_LEVEL"
	ENV_QUERY_TIMEOUT_SECS     = "QUERY_TIMEOUT_SECS"
	ENV_MEM_POOL_TYPE          = "MEM_POOL_TYPE"
	ENV_MEM_POOL_SIZE_MB       = "MEM_POOL_SIZE_MB"
	ENV_DISK_POOL_SIZE_MB      = "DISK_POOL_SIZE_MB"
	ENV_JWT_SECRET             = "JWT_SECRET"
	ENV_AUTH_DEMO_USER         = "AUTH_DEMO_USER"
	ENV_AUTH_DEMO_PASSWORD     = "AUTH_DEMO_PASSWORD"
	ENV_METASTORE_CONFIG       = "METASTORE_CONFIG"
	ENV_STATESTORE_TABLE_NAME  = "STATESTORE_TABLE_NAME"
	ENV_DEFAULT_DATABASE       = "DEFAULT_DATABASE"

	DEFAULT_BIND_ADDRESS          = "0.0.0.0:8080"
	DEFAULT_DATABASE_NAME         = "EMBUCKET"
	DEFAULT_LOG_LEVEL             = embucketlog.LevelInfo
	DEFAULT_DATA_FORMAT           = "json"
	DEFAULT_MAX_CONCURRENCY_LEVEL = 16
	DEFAULT_QUERY_TIMEOUT_SECS    = 300
	DEFAULT_MEM_POOL_TYPE         = "fair"
	DEFAULT_MEM_POOL_SIZE_MB      = 2048
	DEFAULT_SESSION_WINDOW_SECS   = 60
)

// ObjectStoreConfig groups the env-bound secondary settings for the
// volume backends, loaded via caarlos0/env struct tags rather than the
// explicit flag style used for the primary Config (per SPEC_FULL.md
// §1.1: flags for top-level operator-facing knobs, env-struct binding
// for the lower-level object-store/pool timeouts).
type ObjectStoreConfig struct {
	ConnectTimeoutSecs int `env:"OBJECT_STORE_CONNECT_TIMEOUT_SECS" envDefault:"5"`
	TimeoutSecs        int `env:"OBJECT_STORE_TIMEOUT_SECS" envDefault:"30"`
}

// Config is the top-level, once-initialized process configuration.
type Config struct {
	BindAddress         string
	LogLevel            string
	DataFormat          string // "json" | "arrow"
	MaxConcurrencyLevel int
	QueryTimeoutSecs    int
	MemPoolType         string // "fair" | "greedy"
	MemPoolSizeMB       int
	DiskPoolSizeMB      int // 0 = disabled
	JWTSecret           string
	AuthDemoUser        string
	AuthDemoPassword    string
	MetastoreConfigPath string
	StatestoreTableName string
	DefaultDatabase     string
	SessionWindowSecs   int

	ObjectStore ObjectStoreConfig
}

var loaded *Config

func registerFlags(c *Config) {
	flag.StringVar(&c.BindAddress, "bind-address", os.Getenv(ENV_BIND_ADDRESS), "Address to listen on. Default: \""+DEFAULT_BIND_ADDRESS+"\"")
	flag.StringVar(&c.LogLevel, "log-level", os.Getenv(ENV_LOG_LEVEL), `Log level: "ERROR", "WARN", "INFO", "DEBUG", "TRACE". Default: "`+DEFAULT_LOG_LEVEL+`"`)
	flag.StringVar(&c.DataFormat, "data-format", os.Getenv(ENV_DATA_FORMAT), `Result format: "json" or "arrow". Default: "`+DEFAULT_DATA_FORMAT+`"`)
	flag.StringVar(&c.MemPoolType, "mem-pool-type", os.Getenv(ENV_MEM_POOL_TYPE), `Memory pool arbitration: "fair" or "greedy". Default: "`+DEFAULT_MEM_POOL_TYPE+`"`)
	flag.StringVar(&c.JWTSecret, "jwt-secret", os.Getenv(ENV_JWT_SECRET), "HMAC secret used to sign/verify session JWTs")
	flag.StringVar(&c.AuthDemoUser, "auth-demo-user", os.Getenv(ENV_AUTH_DEMO_USER), "Demo login username")
	flag.StringVar(&c.AuthDemoPassword, "auth-demo-password", os.Getenv(ENV_AUTH_DEMO_PASSWORD), "Demo login password")
	flag.StringVar(&c.MetastoreConfigPath, "metastore-config", os.Getenv(ENV_METASTORE_CONFIG), "Path to the metastore bootstrap YAML")
	flag.StringVar(&c.StatestoreTableName, "statestore-table-name", os.Getenv(ENV_STATESTORE_TABLE_NAME), "DynamoDB table name for the state-store adapter")
	flag.StringVar(&c.DefaultDatabase, "default-database", os.Getenv(ENV_DEFAULT_DATABASE), "Default database the catalog operates against. Default: \""+DEFAULT_DATABASE_NAME+"\"")

	flag.IntVar(&c.MaxConcurrencyLevel, "max-concurrency-level", envInt(ENV_MAX_CONCURRENCY_LEVEL, 0), "Maximum concurrently executing queries. Default: "+strconv.Itoa(DEFAULT_MAX_CONCURRENCY_LEVEL))
	flag.IntVar(&c.QueryTimeoutSecs, "query-timeout-secs", envInt(ENV_QUERY_TIMEOUT_SECS, 0), "Per-query timeout in seconds. Default: "+strconv.Itoa(DEFAULT_QUERY_TIMEOUT_SECS))
	flag.IntVar(&c.MemPoolSizeMB, "mem-pool-size-mb", envInt(ENV_MEM_POOL_SIZE_MB, 0), "Global memory pool size in MB. Default: "+strconv.Itoa(DEFAULT_MEM_POOL_SIZE_MB))
	flag.IntVar(&c.DiskPoolSizeMB, "disk-pool-size-mb", envInt(ENV_DISK_POOL_SIZE_MB, 0), "Disk spill pool size in MB (0 disables spill)")
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseFlags validates and fills in defaults, panicking with a
// descriptive message on invalid input (the teacher's own idiom).
func parseFlags(c *Config) {
	flag.Parse()

	if c.LogLevel == "" {
		c.LogLevel = DEFAULT_LOG_LEVEL
	} else if !slices.Contains(embucketlog.Levels, c.LogLevel) {
		panic("Invalid log level " + c.LogLevel + ". Must be one of " + strings.Join(embucketlog.Levels, ", "))
	}

	if c.BindAddress == "" {
		c.BindAddress = DEFAULT_BIND_ADDRESS
	}

	if c.DataFormat == "" {
		c.DataFormat = DEFAULT_DATA_FORMAT
	} else if c.DataFormat != "json" && c.DataFormat != "arrow" {
		panic(fmt.Sprintf("Invalid data format %q. Must be \"json\" or \"arrow\"", c.DataFormat))
	}

	if c.MemPoolType == "" {
		c.MemPoolType = DEFAULT_MEM_POOL_TYPE
	} else if c.MemPoolType != "fair" && c.MemPoolType != "greedy" {
		panic(fmt.Sprintf("Invalid mem pool type %q. Must be \"fair\" or \"greedy\"", c.MemPoolType))
	}

	if c.MaxConcurrencyLevel == 0 {
		c.MaxConcurrencyLevel = DEFAULT_MAX_CONCURRENCY_LEVEL
	}
	if c.QueryTimeoutSecs == 0 {
		c.QueryTimeoutSecs = DEFAULT_QUERY_TIMEOUT_SECS
	}
	if c.MemPoolSizeMB == 0 {
		c.MemPoolSizeMB = DEFAULT_MEM_POOL_SIZE_MB
	}
	c.SessionWindowSecs = DEFAULT_SESSION_WINDOW_SECS

	if c.DefaultDatabase == "" {
		c.DefaultDatabase = DEFAULT_DATABASE_NAME
	}

	if err := env.Parse(&c.ObjectStore); err != nil {
		panic("Invalid object-store configuration: " + err.Error())
	}
}

// Load parses flags/env exactly once and returns the resulting Config.
// A second call panics: global configuration is a once-initialized
// value, per DESIGN NOTES.
func Load() *Config {
	if loaded != nil {
		panic("config.Load called twice: global configuration is once-initialized")
	}
	c := &Config{}
	registerFlags(c)
	parseFlags(c)
	loaded = c
	return c
}
