package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName     = "POS_CONFIG_FILE"
	remotePasswordEnvName = "POS_REMOTE_PASSWORD"
)

// Remote store modes.
const (
	ModeHosted   = "hosted"
	ModePostgres = "postgres"
)

type remote struct {
	Mode     string        `mapstructure:"mode"`
	BaseURL  string        `mapstructure:"base_url"`
	Email    string        `mapstructure:"email"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type reserve struct {
	DebounceWindow time.Duration `mapstructure:"debounce_window"`
	BusyRetry      time.Duration `mapstructure:"busy_retry"`
	DrainTimeout   time.Duration `mapstructure:"drain_timeout"`
}

type store struct {
	OwnerID           string `mapstructure:"owner_id"`
	Currency          string `mapstructure:"currency"`
	SecondaryCurrency string `mapstructure:"secondary_currency"`
	ExchangeRate      string `mapstructure:"exchange_rate"`
	Timezone          string `mapstructure:"timezone"`
	InvoicePrefix     string `mapstructure:"invoice_prefix"`
}

type topics struct {
	Audit          string `mapstructure:"audit"`
	ProductChanges string `mapstructure:"product_changes"`
}

type consumers struct {
	ProductChangesGroup string `mapstructure:"product_changes_group"`
}

type broker struct {
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string  `mapstructure:"schema_registry_urls"`
	Topics             topics    `mapstructure:"topics"`
	Consumers          consumers `mapstructure:"consumers"`
}

type Config struct {
	LogLevel       slog.Level `mapstructure:"log_level"`
	HTTPServerAddr string     `mapstructure:"http_server_addr"`
	StateDir       string     `mapstructure:"state_dir"`
	SQLDB          string     `mapstructure:"sql_db"`
	Remote         remote     `mapstructure:"remote"`
	Reserve        reserve    `mapstructure:"reserve"`
	Store          store      `mapstructure:"store"`
	Broker         broker     `mapstructure:"broker"`
}

func Load() Config {
	_ = godotenv.Load()

	viper.SetConfigFile(getConfigFilepath())

	err := viper.ReadInConfig()
	if err != nil {
		die(err)
	}

	var cfg Config
	err = viper.UnmarshalExact(&cfg)
	if err != nil {
		die(err)
	}

	if pass, ok := os.LookupEnv(remotePasswordEnvName); ok {
		cfg.Remote.Password = pass
	}

	return cfg
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	StateDir=%q
	SQLDB=%q

	RemoteConfig:
	Mode=%q
	BaseURL=%q
	Email=%q
	Timeout=%q

	ReserveConfig:
	DebounceWindow=%q
	BusyRetry=%q
	DrainTimeout=%q

	StoreConfig:
	OwnerID=%q
	Currency=%q
	SecondaryCurrency=%q
	ExchangeRate=%q
	Timezone=%q
	InvoicePrefix=%q

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	Topics:
		Audit=%q
		ProductChanges=%q
	Consumers:
		ProductChangesGroup=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.StateDir,
		c.SQLDB,
		c.Remote.Mode,
		c.Remote.BaseURL,
		c.Remote.Email,
		c.Remote.Timeout,
		c.Reserve.DebounceWindow,
		c.Reserve.BusyRetry,
		c.Reserve.DrainTimeout,
		c.Store.OwnerID,
		c.Store.Currency,
		c.Store.SecondaryCurrency,
		c.Store.ExchangeRate,
		c.Store.Timezone,
		c.Store.InvoicePrefix,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.Topics.Audit,
		c.Broker.Topics.ProductChanges,
		c.Broker.Consumers.ProductChangesGroup,
	)
}
