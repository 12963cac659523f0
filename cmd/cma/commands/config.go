package commands

import (
	"fmt"
	"os"

	"github.com/fivetwenty-io/cma-client/internal/constants"
	"github.com/fivetwenty-io/cma-client/internal/logging"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
	"github.com/fivetwenty-io/cma-client/pkg/cmaclient"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Config is the CLI configuration read from flags, CMA_* environment
// variables and ~/.cma/config.yml.
type Config struct {
	API         string         `json:"api" mapstructure:"api" yaml:"api"`
	Token       string         `json:"token" mapstructure:"token" yaml:"token"`
	Environment string         `json:"environment,omitempty" mapstructure:"environment" yaml:"environment,omitempty"`
	Output      string         `json:"output,omitempty" mapstructure:"output" yaml:"output,omitempty"`
	Verbose     bool           `json:"verbose,omitempty" mapstructure:"verbose" yaml:"verbose,omitempty"`
	LogLevel    string         `json:"log_level,omitempty" mapstructure:"log_level" yaml:"log_level,omitempty"`
	Realtime    RealtimeConfig `json:"realtime,omitempty" mapstructure:"realtime" yaml:"realtime,omitempty"`
	Cache       CacheConfig    `json:"cache,omitempty" mapstructure:"cache" yaml:"cache,omitempty"`
}

// RealtimeConfig locates the realtime channel.
type RealtimeConfig struct {
	Cluster      string `json:"cluster,omitempty" mapstructure:"cluster" yaml:"cluster,omitempty"`
	AppKey       string `json:"app_key,omitempty" mapstructure:"app_key" yaml:"app_key,omitempty"`
	Channel      string `json:"channel,omitempty" mapstructure:"channel" yaml:"channel,omitempty"`
	AuthEndpoint string `json:"auth_endpoint,omitempty" mapstructure:"auth_endpoint" yaml:"auth_endpoint,omitempty"`
}

// CacheConfig selects the job result cache backend.
type CacheConfig struct {
	Type      string `json:"type,omitempty" mapstructure:"type" yaml:"type,omitempty"`
	URL       string `json:"url,omitempty" mapstructure:"url" yaml:"url,omitempty"`
	Bucket    string `json:"bucket,omitempty" mapstructure:"bucket" yaml:"bucket,omitempty"`
	DB        int    `json:"db,omitempty" mapstructure:"db" yaml:"db,omitempty"`
	LocalSize int    `json:"local_size,omitempty" mapstructure:"local_size" yaml:"local_size,omitempty"`
}

func loadConfig() *Config {
	return &Config{
		API:         viper.GetString("api"),
		Token:       viper.GetString("token"),
		Environment: viper.GetString("environment"),
		Output:      viper.GetString("output"),
		Verbose:     viper.GetBool("verbose"),
		LogLevel:    viper.GetString("log_level"),
		Realtime: RealtimeConfig{
			Cluster:      viper.GetString("realtime.cluster"),
			AppKey:       viper.GetString("realtime.app_key"),
			Channel:      viper.GetString("realtime.channel"),
			AuthEndpoint: viper.GetString("realtime.auth_endpoint"),
		},
		Cache: CacheConfig{
			Type:      viper.GetString("cache.type"),
			URL:       viper.GetString("cache.url"),
			Bucket:    viper.GetString("cache.bucket"),
			DB:        viper.GetInt("cache.db"),
			LocalSize: viper.GetInt("cache.local_size"),
		},
	}
}

// SetupLogging configures the global logger from the CLI configuration.
func SetupLogging() {
	config := loadConfig()

	level := logging.LogLevel(config.LogLevel)
	if config.Verbose {
		level = logging.LevelDebug
	}

	if level == "" {
		level = logging.DefaultConfig().Level
	}

	logging.Setup(logging.Config{
		Level:  level,
		Pretty: term.IsTerminal(int(os.Stderr.Fd())),
		Output: os.Stderr,
	})
}

// buildClientConfig converts the CLI configuration into a client configuration.
func buildClientConfig(config *Config) (*cma.Config, error) {
	if config.API == "" {
		return nil, constants.ErrNoAPIEndpoint
	}

	if config.Token == "" {
		return nil, constants.ErrNoAPIToken
	}

	cacheConfig, err := buildCacheConfig(config.Cache)
	if err != nil {
		return nil, err
	}

	return &cma.Config{
		APIEndpoint: config.API,
		APIToken:    config.Token,
		Environment: config.Environment,
		Logger:      logging.NewClientLogger("cma"),
		Debug:       config.Verbose,
		Realtime: cma.RealtimeConfig{
			Cluster:      config.Realtime.Cluster,
			AppKey:       config.Realtime.AppKey,
			Channel:      config.Realtime.Channel,
			AuthEndpoint: config.Realtime.AuthEndpoint,
		},
		Cache: cacheConfig,
	}, nil
}

func buildCacheConfig(config CacheConfig) (*cma.CacheConfig, error) {
	cacheConfig := cma.DefaultCacheConfig()

	switch cma.CacheType(config.Type) {
	case "", cma.CacheTypeMemory:
		return cacheConfig, nil
	case cma.CacheTypeNone:
		cacheConfig.Type = cma.CacheTypeNone
	case cma.CacheTypeRedis:
		cacheConfig.Type = cma.CacheTypeRedis
		cacheConfig.Redis = &cma.RedisConfig{
			Addr: config.URL,
			DB:   config.DB,
			TTL:  cacheConfig.TTL,
		}
	case cma.CacheTypeNATS:
		cacheConfig.Type = cma.CacheTypeNATS
		cacheConfig.NATS = &cma.NATSKVConfig{
			URL:    config.URL,
			Bucket: config.Bucket,
			TTL:    cacheConfig.TTL,
		}
	default:
		return nil, fmt.Errorf("%w: %s", cma.ErrUnsupportedCacheType, config.Type)
	}

	cacheConfig.Memory = nil

	if config.LocalSize > 0 && cacheConfig.Type != cma.CacheTypeNone {
		cacheConfig.Local = &cma.MemoryCacheConfig{MaxSize: config.LocalSize}
	}

	return cacheConfig, nil
}

// CreateClient creates a client from the CLI configuration.
func CreateClient() (cma.Client, error) {
	clientConfig, err := buildClientConfig(loadConfig())
	if err != nil {
		return nil, err
	}

	client, err := cmaclient.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long:  "Display the effective CLI configuration",
	}

	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show configuration",
		Long:  "Display the configuration merged from flags, CMA_* variables and the config file. The token is masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.Token != "" {
				config.Token = Masked
			}

			return render(cmd.OutOrStdout(), outputFormat(), config, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("API", valueOrNA(config.API))
				_ = table.Append("Token", valueOrNA(config.Token))
				_ = table.Append("Environment", valueOrNA(config.Environment))
				_ = table.Append("Realtime Cluster", valueOrNA(config.Realtime.Cluster))
				_ = table.Append("Realtime Channel", valueOrNA(config.Realtime.Channel))
				_ = table.Append("Cache", valueOrNA(config.Cache.Type))
				_ = table.Append("Config File", valueOrNA(viper.ConfigFileUsed()))
			})
		},
	}
}

func valueOrNA(value string) string {
	if value == "" {
		return NotAvailable
	}

	return value
}
