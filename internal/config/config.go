package config

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	APIPort  int `yaml:"apiPort"`
	Database struct {
		Type            string `yaml:"type"`
		Path            string `yaml:"path"`
		Host            string `yaml:"host"`
		Port            string `yaml:"port"`
		Name            string `yaml:"name"`
		User            string `yaml:"user"`
		Password        string `yaml:"password"`
		SSLMode         string `yaml:"sslMode"`
		MaxConns        int    `yaml:"maxConns"`
		MaxIdle         int    `yaml:"maxIdle"`
		ConnMaxLifetime string `yaml:"connMaxLifetime"`
	} `yaml:"database"`
	Domains struct {
		App    string `yaml:"app"`
		API    string `yaml:"api"`
		Secure bool   `yaml:"secure"`
	} `yaml:"domains"`
	FrontendURL string `yaml:"frontendUrl"`
	Auth        struct {
		JWTSecret string `yaml:"jwtSecret"`
	} `yaml:"auth"`
	Google struct {
		ClientID     string `yaml:"clientId"`
		ClientSecret string `yaml:"clientSecret"`
		RedirectURL  string `yaml:"redirectUrl"`
	} `yaml:"google"`
	Mail struct {
		Mode      string `yaml:"mode"` // "ses" or "log"
		From      string `yaml:"from"`
		Region    string `yaml:"region"`
		AccessKey string `yaml:"accessKey"`
		SecretKey string `yaml:"secretKey"`
	} `yaml:"mail"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CHRONOPLAN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; env vars and defaults take over.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, err
			}
		}
		log.Printf("Warning: could not read config file: %s. Using defaults and environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
		log.Println("APIPort not specified, using default 8081")
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "chronoplan.db"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "https://app.chronoplan.io"
		log.Println("Frontend URL not specified, using default https://app.chronoplan.io")
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = os.Getenv("CHRONOPLAN_JWT_SECRET")
	}

	if cfg.Mail.Mode == "" {
		cfg.Mail.Mode = "log"
		log.Println("Mail mode not specified, using log mailer")
	}

	// Only set secure default if it wasn't specified in the config file
	if !v.IsSet("domains.secure") {
		env := os.Getenv("CHRONOPLAN_ENV")
		cfg.Domains.Secure = env == "prod"
	}

	return &cfg, nil
}
