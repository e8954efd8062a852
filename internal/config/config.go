package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	DBPath           string `mapstructure:"db_path"`
	Addr             string `mapstructure:"addr"`
	ExportDir        string `mapstructure:"export_dir"`
	LedgerDir        string `mapstructure:"ledger_dir"`
	BackupDir        string `mapstructure:"backup_dir"`
	EODSchedule      string `mapstructure:"eod_schedule"`
	RemindSchedule   string `mapstructure:"remind_schedule"`
	Timezone         string `mapstructure:"timezone"`
	UndoDepth        int    `mapstructure:"undo_depth"`
	WhatsAppToken    string `mapstructure:"whatsapp_token"`
	WhatsAppPhoneID  string `mapstructure:"whatsapp_phone_id"`
	WhatsAppAPI      string `mapstructure:"whatsapp_api"`
	RemindersEnabled bool   `mapstructure:"reminders_enabled"`
	Debug            bool   `mapstructure:"debug"`
}

// New builds a viper instance with defaults, STUDIO_* env vars and an
// optional .env file next to the working directory.
func New() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("db_path", "dance_school.db")
	v.SetDefault("addr", ":8080")
	v.SetDefault("export_dir", "Dersler")
	v.SetDefault("ledger_dir", filepath.Join("hesap", "exceller"))
	v.SetDefault("backup_dir", "yedek_database")
	v.SetDefault("eod_schedule", "30 22 * * *")
	v.SetDefault("remind_schedule", "0 10 * * *")
	v.SetDefault("timezone", "Europe/Istanbul")
	v.SetDefault("undo_depth", 1)
	v.SetDefault("whatsapp_token", "")
	v.SetDefault("whatsapp_phone_id", "")
	v.SetDefault("whatsapp_api", "https://graph.facebook.com/v19.0")
	v.SetDefault("reminders_enabled", false)
	v.SetDefault("debug", false)

	// load .env if it exists (ignore if it does not)
	dotEnv := filepath.Join(".", ".env")
	if _, err := os.Stat(dotEnv); err == nil {
		if err := godotenv.Load(dotEnv); err != nil {
			log.Printf("config: load %s: %v", dotEnv, err)
		}
	}

	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads an optional config file into v, which already carries New's
// sources and any bound flags, and decodes the result.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", file)
		}
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if c.UndoDepth < 1 {
		c.UndoDepth = 1
	}
	return c, nil
}

// Location is the studio's wall clock; unknown zones fall back to local time.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %q, using local time", c.Timezone)
		return time.Local
	}
	return loc
}

// Today is the current date in the studio's zone.
func (c Config) Today() time.Time {
	y, m, d := time.Now().In(c.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
