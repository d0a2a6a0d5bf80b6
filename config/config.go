package config

import (
	"database/sql"
	_ "github.com/lib/pq"
	"github.com/spf13/viper"
	"time"
)

type Config struct {
	App     App       `yaml:"app"`
	Server  Server    `yaml:"server"`
	Storage Storage   `yaml:"storage"`
	Vapi    Vapi      `yaml:"vapi"`
	Record  Record    `yaml:"record"`
	Queue   *RabbitMQ `yaml:"rabbitmq"`
	DB      *sql.DB   `yaml:"db"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

// Storage holds the object store location and credential material.
// Credential fields accept three shapes, resolved per call in order of
// precedence: an inline JSON blob, discrete access id plus key material
// (raw, PEM-armored or base64-wrapped JSON), or ambient platform
// credentials when both are empty.
type Storage struct {
	Backend         string `yaml:"backend"`
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Secure          bool   `yaml:"secure"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	PublicBaseURL   string `yaml:"public_base_url"`
	PublicRead      bool   `yaml:"public_read"`
	CredentialsJSON string `yaml:"credentials_json"`
	AccessID        string `yaml:"access_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type Vapi struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	AssistantID string `yaml:"assistant_id"`
}

// Record configures the local capture client (record subcommand).
type Record struct {
	SessionID string        `yaml:"session_id"`
	InputURL  string        `yaml:"input_url"`
	MimeType  string        `yaml:"mime_type"`
	Interval  time.Duration `yaml:"interval"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	viper.SetDefault("storage.backend", "minio")
	viper.SetDefault("record.interval_seconds", 5)
	viper.SetDefault("record.mime_type", "video/webm;codecs=vp9,opus")
	viper.SetDefault("vapi.base_url", "https://api.vapi.ai")

	return &Config{
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Storage: Storage{
			Backend:         viper.GetString("storage.backend"),
			Bucket:          viper.GetString("storage.bucket"),
			Endpoint:        viper.GetString("storage.endpoint"),
			Region:          viper.GetString("storage.region"),
			Secure:          viper.GetBool("storage.secure"),
			UsePathStyle:    viper.GetBool("storage.use_path_style"),
			PublicBaseURL:   viper.GetString("storage.public_base_url"),
			PublicRead:      viper.GetBool("storage.public_read"),
			CredentialsJSON: viper.GetString("storage.credentials_json"),
			AccessID:        viper.GetString("storage.access_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
		},
		Vapi: Vapi{
			BaseURL:     viper.GetString("vapi.base_url"),
			APIKey:      viper.GetString("vapi.api_key"),
			AssistantID: viper.GetString("vapi.assistant_id"),
		},
		Record: Record{
			SessionID: viper.GetString("record.session_id"),
			InputURL:  viper.GetString("record.input_url"),
			MimeType:  viper.GetString("record.mime_type"),
			Interval:  time.Duration(viper.GetInt("record.interval_seconds")) * time.Second,
		},
		Queue: rabbitmq,
		DB:    db,
	}, nil
}
