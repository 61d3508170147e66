package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1|max:65535"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required|in:sqlite,postgres"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type ChatConfig struct {
	ReplayWindow time.Duration `yaml:"replayWindow" validate:"required|min:1"`
}

type PollConfig struct {
	Duration    time.Duration `yaml:"duration" validate:"required|min:1"`
	Idle        time.Duration `yaml:"idle" validate:"required|min:1"`
	TallyColumn string        `yaml:"tallyColumn" validate:"required|in:day,rover,camera"`
	ArchivePath string        `yaml:"archivePath"`
	HistorySize int           `yaml:"historySize"`
}

type SocketConfig struct {
	SendBuffer     int           `yaml:"sendBuffer" validate:"required|min:1"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" validate:"required|min:1"`
	PingInterval   time.Duration `yaml:"pingInterval" validate:"required|min:1"`
	RecoveryWindow time.Duration `yaml:"recoveryWindow"`
	RecoveryBuffer int           `yaml:"recoveryBuffer"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server         `yaml:"webServer"`
	Logger    LoggerConfig   `yaml:"logger"`
	Database  DatabaseConfig `yaml:"database"`
	Chat      ChatConfig     `yaml:"chat"`
	Poll      PollConfig     `yaml:"poll"`
	Socket    SocketConfig   `yaml:"socket"`
	Cache     CacheConfig    `yaml:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}
