package core

import (
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env        string
		Build      string
		Debug      bool
		TestMode   bool
		AppName    string
		SchoolName string
		WorkDir    string

		CurrentTerm   string
		CurrentYear   int
		SeedDemoData  bool
		AutoMessaging bool

		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server ServerConfig
		Mpesa  MpesaConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugAddress    string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	MpesaConfig struct {
		Shortcode string
		Delay     time.Duration
	}
)

// NewConfig loads the configuration for the current ENV (DEV by default).
// Values are read from the environment, prefixed with the ENV name (eg. DEV_SCHOOLNAME),
// after loading `config/.env.<env>` if it exists.
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "ElimuSmart")
	v.SetDefault("schoolName", "ElimuSmart Academy")
	v.SetDefault("currentTerm", "Term 1")
	v.SetDefault("currentYear", time.Now().Year())
	v.SetDefault("seedDemoData", true)
	v.SetDefault("autoMessaging", true)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "ElimuSmart <noreply@localhost>")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("mpesa.shortcode", "174379")
	v.SetDefault("mpesa.delay", 2*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("seedDemoData", false)
		v.SetDefault("mpesa.delay", time.Duration(0))
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SchoolName:       v.GetString("schoolName"),
		WorkDir:          wd,
		CurrentTerm:      v.GetString("currentTerm"),
		CurrentYear:      v.GetInt("currentYear"),
		SeedDemoData:     v.GetBool("seedDemoData"),
		AutoMessaging:    v.GetBool("autoMessaging"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Mpesa: MpesaConfig{
			Shortcode: v.GetString("mpesa.shortcode"),
			Delay:     v.GetDuration("mpesa.delay"),
		},
	}
	if _, err := mail.ParseAddress(conf.defaultFromEmail); err != nil {
		return nil, errors.Wrap(err, "parsing defaultFromEmail")
	}
	return conf, nil
}

// NewTestConfig returns a Config suitable for tests: no demo data, no delays, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		AppName:          "ElimuSmart",
		SchoolName:       "ElimuSmart Academy",
		CurrentTerm:      "Term 1",
		CurrentYear:      2024,
		AutoMessaging:    true,
		defaultFromEmail: "ElimuSmart <noreply@localhost>",
		Server: ServerConfig{
			Host:            "localhost",
			ShutdownTimeout: time.Second,
			DisableReqLogs:  true,
		},
		Mpesa: MpesaConfig{Shortcode: "174379"},
	}
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}
