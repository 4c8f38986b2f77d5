package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	S2S           S2SConfig `mapstructure:"s2s"`
	Storage       StorageConfig
	Tracing       TracingConfig `mapstructure:"tracing"`
	Redis         RedisConfig
	CORS          CORSConfig          `mapstructure:"cors"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	PCQ           PCQConfig           `mapstructure:"pcq"`
	Consolidation ConsolidationConfig `mapstructure:"consolidation"`
	Disposer      DisposerConfig      `mapstructure:"disposer"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"ssl_mode"`
}

// S2SConfig 服务间调用鉴权配置，各列表为允许调用对应接口的服务名
type S2SConfig struct {
	Secret                string   `mapstructure:"secret"`
	SubmitServices        []string `mapstructure:"submit_services"`
	ConsolidationServices []string `mapstructure:"consolidation_services"`
	AdminServices         []string `mapstructure:"admin_services"`
	BulkScanServices      []string `mapstructure:"bulk_scan_services"`
}

type StorageConfig struct {
	MinioEndpoint     string `mapstructure:"minio_endpoint"`
	MinioAccessID     string `mapstructure:"minio_access_key"`
	MinioSecret       string `mapstructure:"minio_secret_key"`
	MinioBucket       string `mapstructure:"minio_bucket"`
	MinioUseSSL       bool   `mapstructure:"minio_use_ssl"`
	UploadTokenMinute int    `mapstructure:"upload_token_minutes"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// PCQConfig 问卷提交相关配置
// EncryptionKey 为空时 party_id 按明文存储（兼容历史未加密数据）
type PCQConfig struct {
	ExpectedVersion int    `mapstructure:"expected_version"`
	SchemaPath      string `mapstructure:"schema_path"`
	EncryptionKey   string `mapstructure:"encryption_key"`

	SchemaDocument []byte `mapstructure:"-"` // 由 SchemaPath 读取
}

type ConsolidationConfig struct {
	LowerBoundDays int `mapstructure:"lower_bound_days"`
	// 0 表示不设上限
	UpperBoundDays int `mapstructure:"upper_bound_days"`
}

// UpperBound 未配置上限时返回 nil
func (c ConsolidationConfig) UpperBound() *int {
	if c.UpperBoundDays <= 0 {
		return nil
	}
	days := c.UpperBoundDays
	return &days
}

type DisposerConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	DryRun           bool `mapstructure:"dry_run"`
	KeepWithCaseDays int  `mapstructure:"keep_with_case_days"`
	KeepNoCaseDays   int  `mapstructure:"keep_no_case_days"`
	IntervalMinutes  int  `mapstructure:"interval_minutes"`
}

func (d DisposerConfig) Interval() time.Duration {
	if d.IntervalMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(d.IntervalMinutes) * time.Minute
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "4555")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("storage.upload_token_minutes", 30)
	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("pcq.expected_version", 1)
	v.SetDefault("pcq.schema_path", "configs/schema/pcq_answers.cue")
	v.SetDefault("consolidation.lower_bound_days", 90)
	v.SetDefault("disposer.enabled", false)
	v.SetDefault("disposer.dry_run", true)
	v.SetDefault("disposer.keep_with_case_days", 1825)
	v.SetDefault("disposer.keep_no_case_days", 90)
	v.SetDefault("disposer.interval_minutes", 1440)
}

// LoadConfig 读取 path 下的 config.yaml，叠加环境变量，并加载问卷 schema 文档
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("PCQ")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// S2S
	v.BindEnv("s2s.secret", "S2S_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// Storage
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// PCQ
	v.BindEnv("pcq.encryption_key", "PCQ_ENCRYPTION_KEY")
	v.BindEnv("pcq.expected_version", "PCQ_EXPECTED_VERSION")

	// Disposer
	v.BindEnv("disposer.enabled", "DISPOSER_ENABLED")
	v.BindEnv("disposer.dry_run", "DISPOSER_DRY_RUN")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	schemaPath := cfg.PCQ.SchemaPath
	if !filepath.IsAbs(schemaPath) {
		if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
			schemaPath = filepath.Join(path, "..", cfg.PCQ.SchemaPath)
		}
	}
	doc, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read answer schema %s: %w", cfg.PCQ.SchemaPath, err)
	}
	cfg.PCQ.SchemaDocument = doc

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Mode == "release" && len(c.S2S.Secret) < 32 {
		return fmt.Errorf("s2s secret is too short (%d chars), must be at least 32 characters in release mode", len(c.S2S.Secret))
	}
	if c.PCQ.ExpectedVersion <= 0 {
		return fmt.Errorf("pcq.expected_version must be positive, got %d", c.PCQ.ExpectedVersion)
	}
	if c.Disposer.KeepWithCaseDays <= 0 || c.Disposer.KeepNoCaseDays <= 0 {
		return fmt.Errorf("disposer retention days must be positive (with case %d, no case %d)",
			c.Disposer.KeepWithCaseDays, c.Disposer.KeepNoCaseDays)
	}
	if c.Consolidation.LowerBoundDays <= 0 {
		return fmt.Errorf("consolidation.lower_bound_days must be positive, got %d", c.Consolidation.LowerBoundDays)
	}
	return nil
}
