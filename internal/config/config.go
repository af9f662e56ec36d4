package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		TokenLifespan time.Duration `mapstructure:"token_lifespan"`
	} `mapstructure:"auth"`
	Mux struct {
		TokenID       string `mapstructure:"token_id"`
		TokenSecret   string `mapstructure:"token_secret"`
		SigningKeyID  string `mapstructure:"signing_key_id"`
		SigningKeyPEM string `mapstructure:"signing_key_pem"`
		BaseURL       string `mapstructure:"base_url"`
	} `mapstructure:"mux"`
	Whisper struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"whisper"`
	OpenAI struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"openai"`
	Cloudinary struct {
		CloudName string `mapstructure:"cloud_name"`
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	} `mapstructure:"cloudinary"`
	Workflow struct {
		PollInterval     time.Duration `mapstructure:"poll_interval"`
		UploadAttempts   int           `mapstructure:"upload_attempts"`
		ReadyAttempts    int           `mapstructure:"ready_attempts"`
		PlaybackTokenTTL time.Duration `mapstructure:"playback_token_ttl"`
	} `mapstructure:"workflow"`
	Tracing struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"tracing"`
}

func LoadConfig() (cfg Config, err error) {

	err = godotenv.Load()
	if err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if err = viper.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read .env only. Error: %v", err)
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("app.env", "development")
	viper.SetDefault("mux.base_url", "https://api.mux.com")
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("workflow.poll_interval", 2*time.Second)
	viper.SetDefault("workflow.upload_attempts", 20)
	viper.SetDefault("workflow.ready_attempts", 150)
	viper.SetDefault("workflow.playback_token_ttl", 12*time.Hour)

	viper.BindEnv("app.port", "APP_PORT")
	viper.BindEnv("app.env", "APP_ENV")
	viper.BindEnv("db.dsn", "DB_DSN")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	viper.BindEnv("auth.token_lifespan", "TOKEN_LIFESPAN")

	viper.BindEnv("mux.token_id", "MUX_TOKEN_ID")
	viper.BindEnv("mux.token_secret", "MUX_TOKEN_SECRET")
	viper.BindEnv("mux.signing_key_id", "MUX_SIGNING_KEY_ID")
	viper.BindEnv("mux.signing_key_pem", "MUX_SIGNING_KEY_PEM")
	viper.BindEnv("mux.base_url", "MUX_BASE_URL")

	viper.BindEnv("whisper.url", "WHISPER_SERVICE_URL")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("openai.model", "OPENAI_MODEL")

	viper.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	viper.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	viper.BindEnv("cloudinary.api_secret", "CLOUDINARY_API_SECRET")

	viper.BindEnv("workflow.poll_interval", "WORKFLOW_POLL_INTERVAL")
	viper.BindEnv("workflow.upload_attempts", "WORKFLOW_UPLOAD_ATTEMPTS")
	viper.BindEnv("workflow.ready_attempts", "WORKFLOW_READY_ATTEMPTS")
	viper.BindEnv("workflow.playback_token_ttl", "WORKFLOW_PLAYBACK_TOKEN_TTL")

	viper.BindEnv("tracing.otlp_endpoint", "OTLP_ENDPOINT")

	err = viper.Unmarshal(&cfg)
	return
}
