package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Storage  StorageConfig
	S3       S3Config
	Parser   ParserConfig
	Geometry GeometryConfig
	CORS     CORSConfig
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UploadConfig holds document upload limits and retention.
type UploadConfig struct {
	MaxFileSizeMB     int64         `mapstructure:"max_file_size_mb"`
	RetentionTTL      time.Duration `mapstructure:"retention_ttl"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	MaxImageDimension int           `mapstructure:"max_image_dimension"`
	ResizeImageTo     int           `mapstructure:"resize_image_to"`
	MaxImagePixels    int64         `mapstructure:"max_image_pixels"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (u *UploadConfig) MaxFileSizeBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// StorageConfig selects the blob storage backend.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"` // local, s3 or minio
	LocalPath string `mapstructure:"local_path"`
}

// S3Config holds S3-compatible object storage settings. It is shared by the
// s3 and minio backends.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// GeometryConfig holds coordinate validator thresholds.
type GeometryConfig struct {
	MaxSpanDegrees      float64 `mapstructure:"max_span_degrees"`
	AreaEpsilon         float64 `mapstructure:"area_epsilon"`
	LowConfidenceCutoff float64 `mapstructure:"low_confidence_cutoff"`
}

// ParserProviderConfig holds settings for a single model provider.
type ParserProviderConfig struct {
	Provider     string  `mapstructure:"provider"`
	APIKey       string  `mapstructure:"api_key"`
	DefaultModel string  `mapstructure:"default_model"`
	BaseURL      string  `mapstructure:"base_url"`
	MaxRetries   int     `mapstructure:"max_retries"`
	TimeoutSecs  int     `mapstructure:"timeout_secs"`
	Temperature  float32 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
}

// ParserConfig holds model client settings with multi-provider support.
type ParserConfig struct {
	// Legacy flat fields (backwards-compatible)
	Provider     string  `mapstructure:"provider"`
	APIKey       string  `mapstructure:"api_key"`
	DefaultModel string  `mapstructure:"default_model"`
	BaseURL      string  `mapstructure:"base_url"`
	MaxRetries   int     `mapstructure:"max_retries"`
	TimeoutSecs  int     `mapstructure:"timeout_secs"`
	Temperature  float32 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`

	// Multi-provider fields
	Primary   ParserProviderConfig `mapstructure:"primary"`
	Secondary ParserProviderConfig `mapstructure:"secondary"`
	Tertiary  ParserProviderConfig `mapstructure:"tertiary"`
}

// PrimaryConfig returns the primary parser provider config, falling back to legacy flat fields.
func (p *ParserConfig) PrimaryConfig() *ParserProviderConfig {
	if p.Primary.Provider != "" {
		return p.withDefaults(&p.Primary)
	}
	return &ParserProviderConfig{
		Provider:     p.Provider,
		APIKey:       p.APIKey,
		DefaultModel: p.DefaultModel,
		BaseURL:      p.BaseURL,
		MaxRetries:   p.MaxRetries,
		TimeoutSecs:  p.TimeoutSecs,
		Temperature:  p.Temperature,
		MaxTokens:    p.MaxTokens,
	}
}

// SecondaryConfig returns the secondary parser provider config, or nil if not configured.
func (p *ParserConfig) SecondaryConfig() *ParserProviderConfig {
	if p.Secondary.Provider != "" {
		return p.withDefaults(&p.Secondary)
	}
	return nil
}

// TertiaryConfig returns the tertiary parser provider config, or nil if not configured.
func (p *ParserConfig) TertiaryConfig() *ParserProviderConfig {
	if p.Tertiary.Provider != "" {
		return p.withDefaults(&p.Tertiary)
	}
	return nil
}

// withDefaults fills sampling parameters left unset on a provider block from
// the flat section.
func (p *ParserConfig) withDefaults(c *ParserProviderConfig) *ParserProviderConfig {
	out := *c
	if out.Temperature == 0 {
		out.Temperature = p.Temperature
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = p.MaxTokens
	}
	return &out
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"`
	Version         string        `mapstructure:"version"`
}

// Load reads configuration from environment variables with the PARCELSCOPE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PARCELSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "240s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.version", "1.0.0")

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 16)
	v.SetDefault("upload.retention_ttl", "1h")
	v.SetDefault("upload.sweep_interval", "1m")
	v.SetDefault("upload.max_image_dimension", 4000)
	v.SetDefault("upload.resize_image_to", 3000)
	v.SetDefault("upload.max_image_pixels", 100_000_000)

	// Storage defaults
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_path", os.TempDir()+"/parcelscope")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "parcelscope-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.use_ssl", true)

	// Geometry defaults
	v.SetDefault("geometry.max_span_degrees", 1.0)
	v.SetDefault("geometry.area_epsilon", 1e-12)
	v.SetDefault("geometry.low_confidence_cutoff", 0.3)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5000,http://127.0.0.1:5000")

	// Parser defaults (legacy flat)
	v.SetDefault("parser.provider", "openai")
	v.SetDefault("parser.api_key", "")
	v.SetDefault("parser.default_model", "gpt-4o")
	v.SetDefault("parser.base_url", "")
	v.SetDefault("parser.max_retries", 3)
	v.SetDefault("parser.timeout_secs", 60)
	v.SetDefault("parser.temperature", 0.1)
	v.SetDefault("parser.max_tokens", 4000)

	// Parser primary/secondary/tertiary defaults
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("parser."+tier+".provider", "")
		v.SetDefault("parser."+tier+".api_key", "")
		v.SetDefault("parser."+tier+".default_model", "")
		v.SetDefault("parser."+tier+".base_url", "")
		v.SetDefault("parser."+tier+".max_retries", 3)
		v.SetDefault("parser."+tier+".timeout_secs", 60)
	}

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                    "PARCELSCOPE_SERVER_PORT",
		"server.read_timeout":            "PARCELSCOPE_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "PARCELSCOPE_SERVER_WRITE_TIMEOUT",
		"server.shutdown_timeout":        "PARCELSCOPE_SERVER_SHUTDOWN_TIMEOUT",
		"server.environment":             "PARCELSCOPE_SERVER_ENVIRONMENT",
		"server.version":                 "PARCELSCOPE_SERVER_VERSION",
		"upload.max_file_size_mb":        "PARCELSCOPE_UPLOAD_MAX_FILE_SIZE_MB",
		"upload.retention_ttl":           "PARCELSCOPE_UPLOAD_RETENTION_TTL",
		"upload.sweep_interval":          "PARCELSCOPE_UPLOAD_SWEEP_INTERVAL",
		"upload.max_image_dimension":     "PARCELSCOPE_UPLOAD_MAX_IMAGE_DIMENSION",
		"upload.max_image_pixels":        "PARCELSCOPE_UPLOAD_MAX_IMAGE_PIXELS",
		"upload.resize_image_to":         "PARCELSCOPE_UPLOAD_RESIZE_IMAGE_TO",
		"storage.backend":                "PARCELSCOPE_STORAGE_BACKEND",
		"storage.local_path":             "PARCELSCOPE_STORAGE_LOCAL_PATH",
		"s3.region":                      "PARCELSCOPE_S3_REGION",
		"s3.bucket":                      "PARCELSCOPE_S3_BUCKET",
		"s3.endpoint":                    "PARCELSCOPE_S3_ENDPOINT",
		"s3.access_key":                  "PARCELSCOPE_S3_ACCESS_KEY",
		"s3.secret_key":                  "PARCELSCOPE_S3_SECRET_KEY",
		"s3.use_ssl":                     "PARCELSCOPE_S3_USE_SSL",
		"geometry.max_span_degrees":      "PARCELSCOPE_GEOMETRY_MAX_SPAN_DEGREES",
		"geometry.area_epsilon":          "PARCELSCOPE_GEOMETRY_AREA_EPSILON",
		"geometry.low_confidence_cutoff": "PARCELSCOPE_GEOMETRY_LOW_CONFIDENCE_CUTOFF",
		"cors.allowed_origins":           "PARCELSCOPE_CORS_ALLOWED_ORIGINS",
		"parser.provider":                "PARCELSCOPE_PARSER_PROVIDER",
		"parser.default_model":           "PARCELSCOPE_PARSER_DEFAULT_MODEL",
		"parser.base_url":                "PARCELSCOPE_PARSER_BASE_URL",
		"parser.max_retries":             "PARCELSCOPE_PARSER_MAX_RETRIES",
		"parser.timeout_secs":            "PARCELSCOPE_PARSER_TIMEOUT_SECS",
		"parser.temperature":             "PARCELSCOPE_PARSER_TEMPERATURE",
		"parser.max_tokens":              "PARCELSCOPE_PARSER_MAX_TOKENS",
	}
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		prefix := "PARCELSCOPE_PARSER_" + strings.ToUpper(tier) + "_"
		envBindings["parser."+tier+".provider"] = prefix + "PROVIDER"
		envBindings["parser."+tier+".api_key"] = prefix + "API_KEY"
		envBindings["parser."+tier+".default_model"] = prefix + "DEFAULT_MODEL"
		envBindings["parser."+tier+".base_url"] = prefix + "BASE_URL"
		envBindings["parser."+tier+".max_retries"] = prefix + "MAX_RETRIES"
		envBindings["parser."+tier+".timeout_secs"] = prefix + "TIMEOUT_SECS"
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	// The flat key also honors the conventional OPENAI_API_KEY variable.
	_ = v.BindEnv("parser.api_key", "PARCELSCOPE_PARSER_API_KEY", "OPENAI_API_KEY")

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if PARCELSCOPE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PARCELSCOPE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:            serverPort,
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		Environment:     v.GetString("server.environment"),
		Version:         v.GetString("server.version"),
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeMB:     v.GetInt64("upload.max_file_size_mb"),
		RetentionTTL:      v.GetDuration("upload.retention_ttl"),
		SweepInterval:     v.GetDuration("upload.sweep_interval"),
		MaxImageDimension: v.GetInt("upload.max_image_dimension"),
		ResizeImageTo:     v.GetInt("upload.resize_image_to"),
		MaxImagePixels:    v.GetInt64("upload.max_image_pixels"),
	}
	cfg.Storage = StorageConfig{
		Backend:   strings.ToLower(v.GetString("storage.backend")),
		LocalPath: v.GetString("storage.local_path"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		UseSSL:    v.GetBool("s3.use_ssl"),
	}
	cfg.Geometry = GeometryConfig{
		MaxSpanDegrees:      v.GetFloat64("geometry.max_span_degrees"),
		AreaEpsilon:         v.GetFloat64("geometry.area_epsilon"),
		LowConfidenceCutoff: v.GetFloat64("geometry.low_confidence_cutoff"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Parser = ParserConfig{
		Provider:     v.GetString("parser.provider"),
		APIKey:       v.GetString("parser.api_key"),
		DefaultModel: v.GetString("parser.default_model"),
		BaseURL:      v.GetString("parser.base_url"),
		MaxRetries:   v.GetInt("parser.max_retries"),
		TimeoutSecs:  v.GetInt("parser.timeout_secs"),
		Temperature:  float32(v.GetFloat64("parser.temperature")),
		MaxTokens:    v.GetInt("parser.max_tokens"),
		Primary:      loadProvider(v, "primary"),
		Secondary:    loadProvider(v, "secondary"),
		Tertiary:     loadProvider(v, "tertiary"),
	}

	return cfg, nil
}

func loadProvider(v *viper.Viper, tier string) ParserProviderConfig {
	key := "parser." + tier + "."
	return ParserProviderConfig{
		Provider:     v.GetString(key + "provider"),
		APIKey:       v.GetString(key + "api_key"),
		DefaultModel: v.GetString(key + "default_model"),
		BaseURL:      v.GetString(key + "base_url"),
		MaxRetries:   v.GetInt(key + "max_retries"),
		TimeoutSecs:  v.GetInt(key + "timeout_secs"),
	}
}
