package config

import (
	"time"

	pkgconfig "github.com/weiawesome/avatar-service/pkg/config"
	"github.com/weiawesome/avatar-service/pkg/database"
	"github.com/weiawesome/avatar-service/pkg/log"
	"github.com/weiawesome/avatar-service/pkg/storage"
)

type Config struct {
	Server   ServerConfig         `mapstructure:"server"`
	Database DatabaseConfig       `mapstructure:"database"`
	Mongo    database.MongoConfig `mapstructure:"mongo"`
	Storage  StorageConfig        `mapstructure:"storage"`
	Redis    RedisConfig          `mapstructure:"redis"`
	Cache    CacheConfig          `mapstructure:"cache"`
	Image    ImageConfig          `mapstructure:"image"`
	Avatar   AvatarConfig         `mapstructure:"avatar"`
	Events   EventsConfig         `mapstructure:"events"`
	Log      log.Config           `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxUploadBytes bounds multipart bodies on the image route.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig selects the avatar store. Driver "mongo" uses the Mongo
// section; postgres, mysql and sqlite go through GORM.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// GORM returns the relational connection settings.
func (c DatabaseConfig) GORM() *database.Config {
	return &database.Config{
		Driver:          c.Driver,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		DBName:          c.DBName,
		SSLMode:         c.SSLMode,
		FilePath:        c.FilePath,
		MaxIdleConns:    c.MaxIdleConns,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		LogLevel:        c.LogLevel,
	}
}

type StorageConfig struct {
	Type  string              `mapstructure:"type"`
	S3    storage.S3Config    `mapstructure:"s3"`
	Local storage.LocalConfig `mapstructure:"local"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
	// InvalidateDelay schedules a second delete after each mutation. Zero
	// disables it.
	InvalidateDelay time.Duration `mapstructure:"invalidate_delay"`
}

type ImageConfig struct {
	// Format is the canonical stored format: webp, jpeg or png.
	Format    string `mapstructure:"format"`
	Quality   int    `mapstructure:"quality"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// EventsConfig controls avatar change events published over Redis pub/sub.
type EventsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Channel string `mapstructure:"channel"`
}

type AvatarConfig struct {
	DefaultImages []string `mapstructure:"default_images"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("database.driver", database.DriverMongo)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "avatar_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/avatar.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "avatar")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.s3.region", "ap-south-1")
	v.SetDefault("storage.s3.bucket", "avatar-internship-assignment")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.local.base_path", "./data/storage")
	v.SetDefault("storage.local.route", "/static")
	v.SetDefault("storage.local.public_url", "http://localhost:3000/static")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.prefix", "avatar")
	v.SetDefault("cache.ttl", "60s")
	v.SetDefault("cache.invalidate_delay", "500ms")
	v.SetDefault("image.format", "webp")
	v.SetDefault("image.quality", 80)
	v.SetDefault("image.key_prefix", "")
	v.SetDefault("avatar.default_images", []string{
		"https://avatar-internship-assignment.s3.ap-south-1.amazonaws.com/avatar-random-1.webp",
		"https://avatar-internship-assignment.s3.ap-south-1.amazonaws.com/avatar-random-2.webp",
	})
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.channel", "avatar:events")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "avatar-service")

	// Env bindings
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.database", "MONGO_DATABASE")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.region", "AWS_REGION")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "AWS_ACCESS_KEY")
	v.BindEnv("storage.s3.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	v.BindEnv("storage.s3.use_path_style", "S3_USE_PATH_STYLE")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("cache.enabled", "CACHE_ENABLED")
	v.BindEnv("image.format", "IMAGE_FORMAT")
	v.BindEnv("events.enabled", "EVENTS_ENABLED")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
