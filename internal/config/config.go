package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConf struct {
	Env                 string `mapstructure:"env"`
	Host                string `mapstructure:"host" validate:"required"`
	Port                int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	AssetsRoot          string `mapstructure:"assets_root" validate:"required"`
	ShutdownSeconds     int    `mapstructure:"shutdown_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

type LimitsConf struct {
	ThumbnailMaxBytes int64 `mapstructure:"thumbnail_max_bytes" validate:"min=1"`
	VideoMaxBytes     int64 `mapstructure:"video_max_bytes" validate:"min=1"`
}

type JWTConf struct {
	Secret string `mapstructure:"secret" validate:"required"`
}

type DatabaseConf struct {
	Driver                string `mapstructure:"driver" validate:"oneof=mongo sqlite postgres dynamodb"`
	DSN                   string `mapstructure:"dsn" validate:"required_if=Driver sqlite,required_if=Driver postgres"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
}

type MongoConf struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type DynamoConf struct {
	Table string `mapstructure:"table"`
}

type AWSConf struct {
	Region   string `mapstructure:"region" validate:"required"`
	Bucket   string `mapstructure:"bucket" validate:"required"`
	Endpoint string `mapstructure:"endpoint"`
}

type S3Conf struct {
	PresignTTL int `mapstructure:"presign_ttl_seconds"`
}

type ThumbnailsConf struct {
	Capacity int `mapstructure:"capacity" validate:"min=0"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConf struct {
	PerMinute int    `mapstructure:"per_minute" validate:"min=0"`
	Prefix    string `mapstructure:"prefix"`
}

type KafkaConf struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type BreakerConf struct {
	MaxFailures     int `mapstructure:"max_failures"`
	IntervalSeconds int `mapstructure:"interval_seconds"`
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
}

type Config struct {
	App        AppConf        `mapstructure:"app"`
	Limits     LimitsConf     `mapstructure:"limits"`
	JWT        JWTConf        `mapstructure:"jwt"`
	Database   DatabaseConf   `mapstructure:"database"`
	Mongo      MongoConf      `mapstructure:"mongodb"`
	Dynamo     DynamoConf     `mapstructure:"dynamodb"`
	AWS        AWSConf        `mapstructure:"aws"`
	S3         S3Conf         `mapstructure:"s3"`
	Thumbnails ThumbnailsConf `mapstructure:"thumbnails"`
	Redis      RedisConf      `mapstructure:"redis"`
	RateLimit  RateLimitConf  `mapstructure:"ratelimit"`
	Kafka      KafkaConf      `mapstructure:"kafka"`
	Breaker    BreakerConf    `mapstructure:"breaker"`
	Log        struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ConnectTimeout  time.Duration
	PresignTTL      time.Duration
	BreakerInterval time.Duration
	BreakerTimeout  time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "localhost")
	v.SetDefault("app.port", 8091)
	v.SetDefault("app.assets_root", "./assets")
	v.SetDefault("app.shutdown_seconds", 15)
	v.SetDefault("app.read_timeout_seconds", 300)
	v.SetDefault("app.write_timeout_seconds", 300)
	v.SetDefault("limits.thumbnail_max_bytes", 10<<20)
	v.SetDefault("limits.video_max_bytes", 1<<30)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "tubely.db")
	v.SetDefault("database.connect_timeout_seconds", 30)
	v.SetDefault("mongodb.database", "tubely")
	v.SetDefault("mongodb.collection", "videos")
	v.SetDefault("s3.presign_ttl_seconds", 600)
	v.SetDefault("thumbnails.capacity", 1024)
	v.SetDefault("ratelimit.per_minute", 60)
	v.SetDefault("ratelimit.prefix", "video-service:ratelimit")
	v.SetDefault("kafka.topic", "video-events")
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.interval_seconds", 60)
	v.SetDefault("breaker.timeout_seconds", 30)
	v.SetDefault("log.level", "info")
}

// Load reads path (optional when empty) and overlays VIDEO_* environment
// variables, e.g. VIDEO_JWT_SECRET or VIDEO_AWS_BUCKET. A .env file in the
// working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("VIDEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about
	for _, k := range []string{"jwt.secret", "aws.region", "aws.bucket", "aws.endpoint", "mongodb.uri",
		"dynamodb.table", "redis.addr", "redis.password", "redis.db", "kafka.brokers"} {
		_ = v.BindEnv(k)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// VIDEO_KAFKA_BROKERS=a:9092,b:9092
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownSeconds) * time.Second
	cfg.ReadTimeout = time.Duration(cfg.App.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.App.WriteTimeoutSeconds) * time.Second
	cfg.ConnectTimeout = time.Duration(cfg.Database.ConnectTimeoutSeconds) * time.Second
	cfg.PresignTTL = time.Duration(cfg.S3.PresignTTL) * time.Second
	cfg.BreakerInterval = time.Duration(cfg.Breaker.IntervalSeconds) * time.Second
	cfg.BreakerTimeout = time.Duration(cfg.Breaker.TimeoutSeconds) * time.Second
	return &cfg, nil
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if err != nil {
		return err
	}
	switch cfg.Database.Driver {
	case "mongo":
		if cfg.Mongo.URI == "" {
			return errors.New("invalid config: mongodb.uri is required for the mongo driver")
		}
	case "dynamodb":
		if cfg.Dynamo.Table == "" {
			return errors.New("invalid config: dynamodb.table is required for the dynamodb driver")
		}
	}
	return nil
}

// PublicBaseURL is the address thumbnail URLs are built from.
func (c *Config) PublicBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.App.Host, c.App.Port)
}
