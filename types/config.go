package types

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	ServerURL             string `yaml:"serverUrl"`
	DefaultMode           string `yaml:"defaultMode"`
	DefaultLanguage       string `yaml:"defaultLanguage"`
	PollIntervalMs        int    `yaml:"pollIntervalMs"`
	MaxNotFoundAttempts   int    `yaml:"maxNotFoundAttempts"`
	RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds"`
	CleanupTimeoutSeconds int    `yaml:"cleanupTimeoutSeconds"`
	RequestsPerSecond     int    `yaml:"requestsPerSecond"` // 0 disables the limiter
	ListenPort            int    `yaml:"listenPort"`
	NotifySocket          string `yaml:"notifySocket,omitempty"`
	HistoryTTLSeconds     int    `yaml:"historyTtlSeconds"`
	MaxUploadBytes        int64  `yaml:"maxUploadBytes"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log           string
	UseConfigPath string
	UseServer     string
	UseMode       string
	UseLang       string
	UseFiles      string // comma separated paths
	UseOutPath    string // where to save the artifact once completed
	UseServe      bool   // run the local control API instead of a one-shot conversion
	UsePort       int
	UseNotifySock string
	UsePreflight  bool // ICMP probe of the server host before starting
}
