package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Chain string

const (
	Chain_Mainnet Chain = "mainnet"
	Chain_Holesky Chain = "holesky"
	Chain_Sepolia Chain = "sepolia"
	Chain_Hoodi   Chain = "hoodi"
	Chain_Local   Chain = "local"
)

func (c Chain) String() string {
	return string(c)
}

var chainIds = map[Chain]uint64{
	Chain_Mainnet: 1,
	Chain_Holesky: 17000,
	Chain_Sepolia: 11155111,
	Chain_Hoodi:   560048,
	Chain_Local:   31337,
}

// ChainId returns the numeric chain id for a named chain.
func (c Chain) ChainId() (uint64, error) {
	id, ok := chainIds[c]
	if !ok {
		return 0, fmt.Errorf("unsupported chain %s", c)
	}
	return id, nil
}

func ParseChain(name string) (Chain, error) {
	if name == "" {
		return "", fmt.Errorf("chain not found")
	}
	c := Chain(strings.ToLower(name))
	if _, ok := chainIds[c]; !ok {
		return "", fmt.Errorf("unsupported chain %s", name)
	}
	return c, nil
}

type Config struct {
	Debug             bool
	Chain             Chain
	EthereumRpcConfig EthereumRpcConfig
	SignerConfig      SignerConfig
	DatabaseConfig    DatabaseConfig
	DataDogConfig     DataDogConfig
	PrometheusConfig  PrometheusConfig
	RpcConfig         RpcConfig
	TriggersConfig    TriggersConfig
}

type EthereumRpcConfig struct {
	// ChainUrls maps a chain id to a websocket or http endpoint
	ChainUrls map[uint64]string
}

type SignerConfig struct {
	PrivateKey string
}

type DatabaseConfig struct {
	Enabled     bool
	Host        string
	Port        int
	User        string
	Password    string
	DbName      string
	SchemaName  string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type DataDogConfig struct {
	StatsdConfig  StatsdConfig
	EnableTracing bool
}

type StatsdConfig struct {
	Enabled    bool
	Url        string
	SampleRate float64
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type RpcConfig struct {
	HttpPort int
}

type TriggersConfig struct {
	File string
}

const (
	ENV_PREFIX = "CHAINWATCH"

	Debug     = "debug"
	ChainName = "chain"

	EthereumRpcUrls = "ethereum.rpc-urls"

	SignerPrivateKey = "signer.private-key"

	DatabaseEnabled     = "database.enabled"
	DatabaseHost        = "database.host"
	DatabasePort        = "database.port"
	DatabaseUser        = "database.user"
	DatabasePassword    = "database.password"
	DatabaseDbName      = "database.db_name"
	DatabaseSchemaName  = "database.schema_name"
	DatabaseSSLMode     = "database.ssl_mode"
	DatabaseSSLCert     = "database.ssl_cert"
	DatabaseSSLKey      = "database.ssl_key"
	DatabaseSSLRootCert = "database.ssl_root_cert"

	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogStatsdSampleRate = "datadog.statsd.sample_rate"
	DataDogEnableTracing    = "datadog.enable_tracing"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"

	RpcHttpPort = "rpc.http-port"

	TriggersFile = "triggers.file"
)

// NewConfig reads every setting from viper, which has already merged flags
// and CHAINWATCH_ prefixed environment variables.
func NewConfig() *Config {
	chain, err := ParseChain(viper.GetString(normalizeFlagName(ChainName)))
	if err != nil {
		chain = Chain_Mainnet
	}

	return &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),
		Chain: chain,

		EthereumRpcConfig: EthereumRpcConfig{
			ChainUrls: parseChainUrls(viper.GetString(normalizeFlagName(EthereumRpcUrls))),
		},

		SignerConfig: SignerConfig{
			PrivateKey: viper.GetString(normalizeFlagName(SignerPrivateKey)),
		},

		DatabaseConfig: DatabaseConfig{
			Enabled:     viper.GetBool(normalizeFlagName(DatabaseEnabled)),
			Host:        viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:        viper.GetInt(normalizeFlagName(DatabasePort)),
			User:        viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:    viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:      viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName:  viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:     viper.GetString(normalizeFlagName(DatabaseSSLMode)),
			SSLCert:     viper.GetString(normalizeFlagName(DatabaseSSLCert)),
			SSLKey:      viper.GetString(normalizeFlagName(DatabaseSSLKey)),
			SSLRootCert: viper.GetString(normalizeFlagName(DatabaseSSLRootCert)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled:    viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:        viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
				SampleRate: viper.GetFloat64(normalizeFlagName(DataDogStatsdSampleRate)),
			},
			EnableTracing: viper.GetBool(normalizeFlagName(DataDogEnableTracing)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},

		RpcConfig: RpcConfig{
			HttpPort: viper.GetInt(normalizeFlagName(RpcHttpPort)),
		},

		TriggersConfig: TriggersConfig{
			File: viper.GetString(normalizeFlagName(TriggersFile)),
		},
	}
}

// DefaultChainId is the chain id of the configured chain.
func (c *Config) DefaultChainId() uint64 {
	id, _ := c.Chain.ChainId()
	return id
}

func normalizeFlagName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// KebabToSnakeCase converts a flag name into the viper key it is stored under.
func KebabToSnakeCase(str string) string {
	return normalizeFlagName(str)
}

func parseStringAsList(envVar string) []string {
	if envVar == "" {
		return []string{}
	}
	// split on commas
	stringList := strings.Split(envVar, ",")

	for i, s := range stringList {
		stringList[i] = strings.TrimSpace(s)
	}
	l := make([]string, 0)
	for _, s := range stringList {
		if s != "" {
			l = append(l, s)
		}
	}
	return l
}

// parseChainUrls parses "1=wss://a,17000=https://b" into a chain id map.
// Malformed entries are skipped.
func parseChainUrls(envVar string) map[uint64]string {
	urls := make(map[uint64]string)
	for _, entry := range parseStringAsList(envVar) {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			continue
		}
		url := strings.TrimSpace(parts[1])
		if url == "" {
			continue
		}
		urls[id] = url
	}
	return urls
}
