package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Auth        AuthConfig        `mapstructure:"auth"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Polymarket  PolymarketConfig  `mapstructure:"polymarket"`
	Proxy       ProxyConfig       `mapstructure:"proxy"`
	Chain       ChainConfig       `mapstructure:"chain"`
	Swap        SwapConfig        `mapstructure:"swap"`
	Cloud       CloudConfig       `mapstructure:"cloud"`
	Agent       AgentConfig       `mapstructure:"agent"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type AuthConfig struct {
	RequireAPIKey bool     `mapstructure:"require_api_key"`
	APIKeys       []string `mapstructure:"api_keys"`
	AdminKey      string   `mapstructure:"admin_key"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAgeSeconds  int      `mapstructure:"max_age_seconds"`
}

type PolymarketConfig struct {
	ClobURL        string `mapstructure:"clob_url"`
	ChainID        int64  `mapstructure:"chain_id"`
	UseServerTime  bool   `mapstructure:"use_server_time"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`

	// L2 API credentials. Optional: the terminal can supply its own per request.
	ApiKey        string `mapstructure:"api_key"`
	ApiSecret     string `mapstructure:"api_secret"`
	ApiPassphrase string `mapstructure:"api_passphrase"`
	Address       string `mapstructure:"address"`

	// Optional L1 key for server-side ClobAuth signatures.
	PrivateKey string `mapstructure:"private_key"`
}

// ProxyConfig describes the paid unlocking relay used when the CLOB blocks
// direct traffic.
type ProxyConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	APIKey          string `mapstructure:"api_key"`
	KeyParam        string `mapstructure:"key_param"`
	URLParam        string `mapstructure:"url_param"`
	BlockedStatuses []int  `mapstructure:"blocked_statuses"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

type ChainConfig struct {
	ChainID      int64    `mapstructure:"chain_id"`
	RPCURLs      []string `mapstructure:"rpc_urls"`
	USDCAddress  string   `mapstructure:"usdc_address"`
	USDCeAddress string   `mapstructure:"usdce_address"`
	TimeoutMs    int      `mapstructure:"timeout_ms"`

	// Owner key of the single-owner custodial Safe. Enables server-side submission.
	OwnerPrivateKey string `mapstructure:"owner_private_key"`
}

type SwapConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	ChainID        int64  `mapstructure:"chain_id"`
	Partner        string `mapstructure:"partner"`
	SlippageBps    int    `mapstructure:"slippage_bps"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type CloudConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	ChatPath       string `mapstructure:"chat_path"`
	TTSPath        string `mapstructure:"tts_path"`
	STTPath        string `mapstructure:"stt_path"`
	ImagePath      string `mapstructure:"image_path"`
	DefaultModel   string `mapstructure:"default_model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type AgentConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	APIKey         string   `mapstructure:"api_key"`
	AllowedPaths   []string `mapstructure:"allowed_paths"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	File       string `mapstructure:"file"`
	BufferSize int    `mapstructure:"buffer_size"`
}

type IdempotencyConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// e.g. POLYRELAY_POLYMARKET_API_KEY
	viper.SetEnvPrefix("polyrelay")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age_days", 14)
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("auth.api_keys", []string{})
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.max_age_seconds", 600)

	viper.SetDefault("polymarket.clob_url", "https://clob.polymarket.com")
	viper.SetDefault("polymarket.chain_id", 137)
	viper.SetDefault("polymarket.use_server_time", true)
	viper.SetDefault("polymarket.timeout_seconds", 15)
	viper.SetDefault("polymarket.api_key", "")
	viper.SetDefault("polymarket.api_secret", "")
	viper.SetDefault("polymarket.api_passphrase", "")
	viper.SetDefault("polymarket.address", "")
	viper.SetDefault("polymarket.private_key", "")

	viper.SetDefault("proxy.base_url", "")
	viper.SetDefault("proxy.api_key", "")
	viper.SetDefault("proxy.key_param", "apikey")
	viper.SetDefault("proxy.url_param", "url")
	viper.SetDefault("proxy.blocked_statuses", []int{403, 429, 503})
	viper.SetDefault("proxy.timeout_seconds", 30)

	viper.SetDefault("chain.chain_id", 137)
	viper.SetDefault("chain.rpc_urls", []string{
		"https://polygon-rpc.com",
		"https://polygon-bor-rpc.publicnode.com",
		"https://polygon.llamarpc.com",
		"https://1rpc.io/matic",
	})
	viper.SetDefault("chain.usdc_address", "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")
	viper.SetDefault("chain.usdce_address", "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	viper.SetDefault("chain.timeout_ms", 8000)
	viper.SetDefault("chain.owner_private_key", "")

	viper.SetDefault("swap.base_url", "https://apiv5.paraswap.io")
	viper.SetDefault("swap.chain_id", 137)
	viper.SetDefault("swap.partner", "polyrelay")
	viper.SetDefault("swap.slippage_bps", 50)
	viper.SetDefault("swap.timeout_seconds", 20)

	viper.SetDefault("cloud.base_url", "https://www.elizacloud.ai/api/v1")
	viper.SetDefault("cloud.api_key", "")
	viper.SetDefault("cloud.chat_path", "/chat/completions")
	viper.SetDefault("cloud.tts_path", "/voice/tts")
	viper.SetDefault("cloud.stt_path", "/voice/stt")
	viper.SetDefault("cloud.image_path", "/generate-image")
	viper.SetDefault("cloud.default_model", "gpt-4o-mini")
	viper.SetDefault("cloud.timeout_seconds", 60)

	viper.SetDefault("agent.base_url", "")
	viper.SetDefault("agent.api_key", "")
	viper.SetDefault("agent.allowed_paths", []string{"/status", "/markets", "/positions", "/trades", "/decisions", "/logs"})
	viper.SetDefault("agent.timeout_seconds", 20)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("rate_limit.qps", 20)
	viper.SetDefault("rate_limit.burst", 40)
	viper.SetDefault("audit.enabled", true)
	viper.SetDefault("audit.file", "")
	viper.SetDefault("audit.buffer_size", 1000)
	viper.SetDefault("idempotency.ttl_seconds", 600)
}
