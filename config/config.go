package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Subgraph  SubgraphConfig  `mapstructure:"subgraph"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Collector CollectorConfig `mapstructure:"collector"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
}

// SubgraphConfig points at the exchange and blocks subgraphs.
type SubgraphConfig struct {
	ExchangeURL string        `mapstructure:"exchange_url"`
	BlocksURL   string        `mapstructure:"blocks_url"`
	Factory     string        `mapstructure:"factory"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheSize   int           `mapstructure:"cache_size"` // cache-first query results kept in memory
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	PageSize    int           `mapstructure:"page_size"`  // tokenDayDatas page size
	SplitSize   int           `mapstructure:"split_size"` // blocks per aliased price query
}

type ChainConfig struct {
	WSURL               string `mapstructure:"ws_url"` // optional; newHeads stream for latest block
	WrappedNative       string `mapstructure:"wrapped_native"`
	WrappedNativeName   string `mapstructure:"wrapped_native_name"`
	WrappedNativeSymbol string `mapstructure:"wrapped_native_symbol"`
}

type CollectorConfig struct {
	TopTokenRefresh time.Duration `mapstructure:"top_token_refresh"`
	BackfillWorkers int           `mapstructure:"backfill_workers"`
	BackfillQueue   int           `mapstructure:"backfill_queue"`
	Blacklist       []string      `mapstructure:"blacklist"`
	PersistCharts   bool          `mapstructure:"persist_charts"`
}

// CacheConfig selects where the history cache blob lives.
type CacheConfig struct {
	Backend   string `mapstructure:"backend"` // "file", "redis", "postgres" or "memory"
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"` // directory for the file backend
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	return &Config{
		Subgraph: SubgraphConfig{
			ExchangeURL: "https://api.thegraph.com/subgraphs/name/pancakeswap/exchange-v2",
			BlocksURL:   "https://api.thegraph.com/subgraphs/name/pancakeswap/blocks",
			Factory:     "0xca143ce32fe78f1f7019d7d551a6402fc5350c73",
			Timeout:     30 * time.Second,
			CacheSize:   4096,
			CacheTTL:    5 * time.Minute,
			PageSize:    1000,
			SplitSize:   200,
		},
		Chain: ChainConfig{
			WrappedNative:       "0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c",
			WrappedNativeName:   "Ether (Wrapped)",
			WrappedNativeSymbol: "ETH",
		},
		Collector: CollectorConfig{
			TopTokenRefresh: 5 * time.Minute,
			BackfillWorkers: 1,
			BackfillQueue:   16,
		},
		Cache: CacheConfig{
			Backend:   "file",
			Namespace: "cheeseswap_history_cache_v1",
			Path:      "data",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Environment: "dev",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			DBName:   "dexcollector",
			SSLMode:  "disable",
			TimeZone: "UTC",
		},
	}
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if dir := os.Getenv("DEXCOLLECTOR_CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}
	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}
	v.AddConfigPath("config")

	setDefaults(v, Default())

	// Support environment variables with dot notation (e.g., SUBGRAPH_EXCHANGE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every default so AutomaticEnv can override keys
// that are absent from the config file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("subgraph.exchange_url", d.Subgraph.ExchangeURL)
	v.SetDefault("subgraph.blocks_url", d.Subgraph.BlocksURL)
	v.SetDefault("subgraph.factory", d.Subgraph.Factory)
	v.SetDefault("subgraph.timeout", d.Subgraph.Timeout)
	v.SetDefault("subgraph.cache_size", d.Subgraph.CacheSize)
	v.SetDefault("subgraph.cache_ttl", d.Subgraph.CacheTTL)
	v.SetDefault("subgraph.page_size", d.Subgraph.PageSize)
	v.SetDefault("subgraph.split_size", d.Subgraph.SplitSize)

	v.SetDefault("chain.ws_url", d.Chain.WSURL)
	v.SetDefault("chain.wrapped_native", d.Chain.WrappedNative)
	v.SetDefault("chain.wrapped_native_name", d.Chain.WrappedNativeName)
	v.SetDefault("chain.wrapped_native_symbol", d.Chain.WrappedNativeSymbol)

	v.SetDefault("collector.top_token_refresh", d.Collector.TopTokenRefresh)
	v.SetDefault("collector.backfill_workers", d.Collector.BackfillWorkers)
	v.SetDefault("collector.backfill_queue", d.Collector.BackfillQueue)
	v.SetDefault("collector.blacklist", d.Collector.Blacklist)
	v.SetDefault("collector.persist_charts", d.Collector.PersistCharts)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.namespace", d.Cache.Namespace)
	v.SetDefault("cache.path", d.Cache.Path)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output_file", d.Log.OutputFile)
	v.SetDefault("log.environment", d.Log.Environment)

	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.password", d.Postgres.Password)
	v.SetDefault("postgres.dbname", d.Postgres.DBName)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.timezone", d.Postgres.TimeZone)
}
