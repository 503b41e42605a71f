package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved daemon configuration. Values come from flags,
// environment variables and the config file via viper; SetDefaults
// registers the fallbacks.
type Config struct {
	Host string
	Port int

	InferenceEndpoint string
	PlannerModel      string
	VisionModel       string
	EmbeddingModel    string

	MaxReplans         int
	PlanCallTimeout    time.Duration
	StepVerifyTimeout  time.Duration
	SecurityLLMTimeout time.Duration
	EmbedTimeout       time.Duration

	VerifyThreshold   float64
	MemoryTopK        int
	SubscriberBacklog int

	MemoryFile string
	HistoryDB  string
	AuditLog   string

	BrowseContentLimit   int
	ResearchContentLimit int
	TypeInterval         time.Duration

	LogFile   string
	LogLevel  string
	LogFormat string
}

// SetDefaults registers every recognized option with its default.
func SetDefaults() {
	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", 8000)

	viper.SetDefault("inference_endpoint", "http://localhost:11434")
	viper.SetDefault("planner_model", "llama3.2")
	viper.SetDefault("vision_model", "llava")
	viper.SetDefault("embedding_model", "nomic-embed-text")

	viper.SetDefault("max_replans", 10)
	viper.SetDefault("plan_call_timeout", 30*time.Second)
	viper.SetDefault("step_verify_timeout", 30*time.Second)
	viper.SetDefault("security_llm_timeout", 2*time.Second)
	viper.SetDefault("embed_timeout", 5*time.Second)

	viper.SetDefault("verify_threshold", 0.7)
	viper.SetDefault("memory_top_k", 2)
	viper.SetDefault("subscriber_backlog", 64)

	viper.SetDefault("memory_file", "vector_memory.json")
	viper.SetDefault("history_db", "memory.db")
	viper.SetDefault("audit_log", "logs/audit.log")

	viper.SetDefault("browse_content_limit", 5000)
	viper.SetDefault("research_content_limit", 8000)
	viper.SetDefault("type_interval", 50*time.Millisecond)

	viper.SetDefault("log-file", "")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "text")
}

// Load builds a Config from the current viper state.
func Load() *Config {
	return &Config{
		Host: viper.GetString("host"),
		Port: viper.GetInt("port"),

		InferenceEndpoint: viper.GetString("inference_endpoint"),
		PlannerModel:      viper.GetString("planner_model"),
		VisionModel:       viper.GetString("vision_model"),
		EmbeddingModel:    viper.GetString("embedding_model"),

		MaxReplans:         viper.GetInt("max_replans"),
		PlanCallTimeout:    viper.GetDuration("plan_call_timeout"),
		StepVerifyTimeout:  viper.GetDuration("step_verify_timeout"),
		SecurityLLMTimeout: viper.GetDuration("security_llm_timeout"),
		EmbedTimeout:       viper.GetDuration("embed_timeout"),

		VerifyThreshold:   viper.GetFloat64("verify_threshold"),
		MemoryTopK:        viper.GetInt("memory_top_k"),
		SubscriberBacklog: viper.GetInt("subscriber_backlog"),

		MemoryFile: viper.GetString("memory_file"),
		HistoryDB:  viper.GetString("history_db"),
		AuditLog:   viper.GetString("audit_log"),

		BrowseContentLimit:   viper.GetInt("browse_content_limit"),
		ResearchContentLimit: viper.GetInt("research_content_limit"),
		TypeInterval:         viper.GetDuration("type_interval"),

		LogFile:   viper.GetString("log-file"),
		LogLevel:  viper.GetString("log-level"),
		LogFormat: viper.GetString("log-format"),
	}
}
