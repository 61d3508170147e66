package providers

import (
	"fmt"
	"path/filepath"
	"roverchat/internal/structures"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const appName = "RoverChat"

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	setDefaults(v)

	_ = v.BindEnv("logger.level", "ROVERCHAT_LOG_LEVEL")
	_ = v.BindEnv("database.driver", "ROVERCHAT_DB_DRIVER")
	_ = v.BindEnv("database.dsn", "ROVERCHAT_DB_DSN")
	_ = v.BindEnv("poll.duration", "ROVERCHAT_POLL_DURATION")
	_ = v.BindEnv("poll.idle", "ROVERCHAT_POLL_IDLE")
	_ = v.BindEnv("webServer.port", "ROVERCHAT_PORT", "PORT")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = appName
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "0.0.0.0")
	v.SetDefault("webServer.port", 3000)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "chat.db")
	v.SetDefault("chat.replayWindow", 30*time.Minute)
	v.SetDefault("poll.duration", time.Minute)
	v.SetDefault("poll.idle", 10*time.Minute)
	v.SetDefault("poll.tallyColumn", "rover")
	v.SetDefault("poll.historySize", 50)
	v.SetDefault("socket.sendBuffer", 64)
	v.SetDefault("socket.writeTimeout", 10*time.Second)
	v.SetDefault("socket.pingInterval", 25*time.Second)
	v.SetDefault("socket.recoveryWindow", 2*time.Minute)
	v.SetDefault("socket.recoveryBuffer", 256)
	v.SetDefault("cache.size", 16)
	v.SetDefault("cache.ttl", 10*time.Minute)
}
