package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type MpesaConfig struct {
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	ShortCode      string `yaml:"short_code"`
	Passkey        string `yaml:"passkey"`
	BaseURL        string `yaml:"base_url"`     // https://sandbox.safaricom.co.ke or production
	CallbackURL    string `yaml:"callback_url"` // absolute URL the gateway posts results to
	TimeoutSecs    int    `yaml:"timeout_secs"`
}

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	Mpesa MpesaConfig `yaml:"mpesa"`

	Receipt struct {
		CompanyName  string `yaml:"company_name"`
		CompanyEmail string `yaml:"company_email"`
	} `yaml:"receipt"`

	Worker struct {
		StalePendingMinutes int `yaml:"stale_pending_minutes"`
	} `yaml:"worker"`

	FirstAdminEmail    string `yaml:"-"`
	FirstAdminPassword string `yaml:"-"`
}

var AppConfig *Config

// LoadConfig reads config.yaml, unless DATABASE_URL is set - then the whole
// configuration comes from environment variables (test mode).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}
	} else {
		cfg.Database.DSN = dbURL
		cfg.Server.Env = os.Getenv("SERVER_ENV")
		cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
		cfg.JWT.TTL = 60

		cfg.Mpesa.ConsumerKey = os.Getenv("MPESA_CONSUMER_KEY")
		cfg.Mpesa.ConsumerSecret = os.Getenv("MPESA_CONSUMER_SECRET")
		cfg.Mpesa.ShortCode = os.Getenv("MPESA_SHORTCODE")
		cfg.Mpesa.Passkey = os.Getenv("MPESA_PASSKEY")
		cfg.Mpesa.BaseURL = os.Getenv("MPESA_BASE_URL")
		cfg.Mpesa.CallbackURL = os.Getenv("MPESA_CALLBACK_URL")
	}

	applyDefaults(&cfg)

	cfg.FirstAdminEmail = os.Getenv("FIRST_ADMIN_EMAIL")
	cfg.FirstAdminPassword = os.Getenv("FIRST_ADMIN_PASSWORD")

	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Mpesa.BaseURL == "" {
		cfg.Mpesa.BaseURL = "https://sandbox.safaricom.co.ke"
	}
	if cfg.Mpesa.TimeoutSecs <= 0 {
		cfg.Mpesa.TimeoutSecs = 30
	}
	if cfg.Receipt.CompanyName == "" {
		cfg.Receipt.CompanyName = "SmartDalali"
	}
	if cfg.Receipt.CompanyEmail == "" {
		cfg.Receipt.CompanyEmail = "support@smartdalali.com"
	}
	if cfg.Worker.StalePendingMinutes <= 0 {
		cfg.Worker.StalePendingMinutes = 120
	}
	if cfg.JWT.TTL <= 0 {
		cfg.JWT.TTL = 60
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
