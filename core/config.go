package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	NotificationConfig struct {
		// Recipients is the broadcast subscriber set: every dispatched
		// notification fans out to each of these account ids.
		Recipients []string
		// AdminEmails receive the completion email on finalization.
		AdminEmails []string
	}

	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		Build    string

		AppName          string
		FrontendBaseURL  string
		DefaultFromName  string
		DefaultFromEmail string

		SendgridAPIKey string
		RollbarToken   string

		Database     DatabaseConfig
		Notification NotificationConfig
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// FromEmailAddress returns the default sender as a mail.Address.
func (c *Config) FromEmailAddress() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromEmail}
}

func init() {
	conf, err := LoadConfig()
	if err != nil {
		log.Fatalf("core.LoadConfig: %v", err)
	}
	Conf = conf
}

// LoadConfig builds the Config from defaults, an optional `config/.env.<env>`
// file and environment variables (prefixed with the deployment env).
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Tarefa")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Tarefa")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "tarefa")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("notification.recipients", []string{})
	v.SetDefault("notification.adminEmails", []string{})

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	conf := &Config{Env: env}
	if err := v.Unmarshal(conf); err != nil {
		return nil, err
	}
	if err := conf.check(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) check() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.AppName, "appName"),
		vala.StringNotEmpty(c.DefaultFromEmail, "defaultFromEmail"),
		vala.StringNotEmpty(c.Database.Engine, "database.engine"),
		vala.StringNotEmpty(c.Database.Name, "database.name"),
		vala.StringNotEmpty(c.Database.Host, "database.host"),
		vala.StringNotEmpty(c.Database.Port, "database.port"),
	).Check()
}
