package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
	// TraceExporter is otlp, stdout or none. An OTLP endpoint implies otlp.
	TraceExporter string `yaml:"trace_exporter"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string            `yaml:"runtime_name"`
	Environment string            `yaml:"environment"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Bus         BusConfig         `yaml:"bus"`
	EventStore  EventStoreConfig  `yaml:"event_store"`
	Audio       AudioConfig       `yaml:"audio"`
	VAD         VADConfig         `yaml:"vad"`
	Model       ModelConfig       `yaml:"model"`
	STT         STTConfig         `yaml:"stt"`
	Selector    SelectorConfig    `yaml:"selector"`
	Jargon      JargonConfig      `yaml:"jargon"`
	PostProcess PostProcessConfig `yaml:"post_process"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings"`
	Expansion   ExpansionConfig   `yaml:"expansion"`
	Control     ControlConfig     `yaml:"control"`
	Delivery    DeliveryConfig    `yaml:"delivery"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

// AudioConfig selects where raw samples come from. Source "command" runs a
// capture program writing signed 16-bit little-endian PCM to stdout, "wav"
// replays a file.
type AudioConfig struct {
	Source          string `yaml:"source"`
	Command         string `yaml:"command"`
	File            string `yaml:"file"`
	Realtime        bool   `yaml:"realtime"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	FrameDurationMS int    `yaml:"frame_duration_ms"`
	QueueFrames     int    `yaml:"queue_frames"`
}

type VADConfig struct {
	Threshold         float64 `yaml:"threshold"`
	Smoothing         float64 `yaml:"smoothing"`
	TrailingSilenceMS int     `yaml:"trailing_silence_ms"`
	MinSegmentMS      int     `yaml:"min_segment_ms"`
	MaxSegmentMS      int     `yaml:"max_segment_ms"`
	QueueSegments     int     `yaml:"queue_segments"`
}

type ModelConfig struct {
	ID              string `yaml:"id"`
	Directory       string `yaml:"directory"`
	LoadOnStart     bool   `yaml:"load_on_start"`
	IdleTimeoutMS   int    `yaml:"idle_timeout_ms"`
	CheckIntervalMS int    `yaml:"check_interval_ms"`
	UnloadAfterUse  bool   `yaml:"unload_after_use"`
}

type STTConfig struct {
	Mode      string `yaml:"mode"`
	Command   string `yaml:"command"`
	Language  string `yaml:"language"`
	TimeoutMS int    `yaml:"timeout_ms"`
	Filter    bool   `yaml:"filter"`
}

type SelectorConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Scorer      string  `yaml:"scorer"` // lexical, embedding
	TimeoutMS   int     `yaml:"timeout_ms"`
	TopK        int     `yaml:"top_k"`
	MinScore    float64 `yaml:"min_score"`
	Hysteresis  float64 `yaml:"hysteresis"`
	BlendManual bool    `yaml:"blend_manual"`
}

type CorrectionConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type JargonConfig struct {
	EnabledProfiles   []string           `yaml:"enabled_profiles"`
	CustomTerms       []string           `yaml:"custom_terms"`
	CustomCorrections []CorrectionConfig `yaml:"custom_corrections"`
	PacksFile         string             `yaml:"packs_file"`
	FuzzyThreshold    float64            `yaml:"fuzzy_threshold"`
}

type PostProcessConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Mode        string  `yaml:"mode"` // mock, ollama, openai, exec
	Endpoint    string  `yaml:"endpoint"`
	Command     string  `yaml:"command"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutMS   int     `yaml:"timeout_ms"`
	PromptID    string  `yaml:"prompt_id"`
	AutoPrompt  bool    `yaml:"auto_prompt"`
}

type EmbeddingsConfig struct {
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
}

type ExpansionConfig struct {
	Enabled         bool   `yaml:"enabled"`
	WorkspaceRoot   string `yaml:"workspace_root"`
	RequireGit      bool   `yaml:"require_git"`
	MaxFiles        int    `yaml:"max_files"`
	MaxDepth        int    `yaml:"max_depth"`
	CacheTTLMS      int    `yaml:"cache_ttl_ms"`
	SnippetMaxLines int    `yaml:"snippet_max_lines"`
	SnippetMaxBytes int    `yaml:"snippet_max_bytes"`
}

type ControlConfig struct {
	Mode     string `yaml:"mode"` // toggle, push_to_talk
	Signals  bool   `yaml:"signals"`
	LockFile string `yaml:"lock_file"`
}

type DeliveryConfig struct {
	Mode      string `yaml:"mode"` // comma separated: log, command, bus
	Command   string `yaml:"command"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-dictate",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
			TraceExporter:  "none",
		},
		Bus: BusConfig{
			Enabled:        true,
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		EventStore: EventStoreConfig{
			Path:          "./data/loqa-dictate.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		Audio: AudioConfig{
			Source:          "command",
			Command:         "arecord -q -f S16_LE -c 1 -r 16000 -t raw",
			SampleRate:      16000,
			Channels:        1,
			FrameDurationMS: 20,
			QueueFrames:     500,
		},
		VAD: VADConfig{
			Threshold:         0.02,
			Smoothing:         0.6,
			TrailingSilenceMS: 700,
			MinSegmentMS:      300,
			MaxSegmentMS:      30000,
			QueueSegments:     16,
		},
		Model: ModelConfig{
			ID:              "ggml-base.en",
			Directory:       "./models",
			IdleTimeoutMS:   5 * 60 * 1000,
			CheckIntervalMS: 10000,
		},
		STT: STTConfig{
			Mode:      "mock",
			TimeoutMS: 45000,
			Filter:    true,
		},
		Selector: SelectorConfig{
			Enabled:     true,
			Scorer:      "lexical",
			TimeoutMS:   60,
			TopK:        2,
			MinScore:    0.18,
			Hysteresis:  0.05,
			BlendManual: true,
		},
		Jargon: JargonConfig{
			FuzzyThreshold: 0.18,
		},
		PostProcess: PostProcessConfig{
			Enabled:     false,
			Mode:        "mock",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:latest",
			MaxTokens:   1024,
			Temperature: 0.2,
			TimeoutMS:   20000,
			PromptID:    "default_improve_transcriptions",
		},
		Embeddings: EmbeddingsConfig{
			Model:      "text-embedding-3-small",
			Dimensions: 256,
		},
		Expansion: ExpansionConfig{
			Enabled:         false,
			RequireGit:      true,
			MaxFiles:        50000,
			MaxDepth:        10,
			CacheTTLMS:      5000,
			SnippetMaxLines: 200,
			SnippetMaxBytes: 25000,
		},
		Control: ControlConfig{
			Mode:    "toggle",
			Signals: true,
		},
		Delivery: DeliveryConfig{
			Mode:      "log",
			TimeoutMS: 10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LOQA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LOQA_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "LOQA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LOQA_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "LOQA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOQA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOQA_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "LOQA_TELEMETRY_PROMETHEUS_BIND")
	overrideString(&cfg.Telemetry.TraceExporter, "LOQA_TELEMETRY_TRACE_EXPORTER")
	overrideBool(&cfg.Bus.Enabled, "LOQA_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "LOQA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LOQA_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "LOQA_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "LOQA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LOQA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LOQA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LOQA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LOQA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LOQA_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.EventStore.Path, "LOQA_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "LOQA_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "LOQA_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxSessions, "LOQA_EVENT_STORE_MAX_SESSIONS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "LOQA_EVENT_STORE_VACUUM_ON_START")
	overrideString(&cfg.Audio.Source, "LOQA_AUDIO_SOURCE")
	overrideString(&cfg.Audio.Command, "LOQA_AUDIO_COMMAND")
	overrideString(&cfg.Audio.File, "LOQA_AUDIO_FILE")
	overrideBool(&cfg.Audio.Realtime, "LOQA_AUDIO_REALTIME")
	overrideInt(&cfg.Audio.SampleRate, "LOQA_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "LOQA_AUDIO_CHANNELS")
	overrideInt(&cfg.Audio.FrameDurationMS, "LOQA_AUDIO_FRAME_DURATION_MS")
	overrideInt(&cfg.Audio.QueueFrames, "LOQA_AUDIO_QUEUE_FRAMES")
	overrideFloat(&cfg.VAD.Threshold, "LOQA_VAD_THRESHOLD")
	overrideFloat(&cfg.VAD.Smoothing, "LOQA_VAD_SMOOTHING")
	overrideInt(&cfg.VAD.TrailingSilenceMS, "LOQA_VAD_TRAILING_SILENCE_MS")
	overrideInt(&cfg.VAD.MinSegmentMS, "LOQA_VAD_MIN_SEGMENT_MS")
	overrideInt(&cfg.VAD.MaxSegmentMS, "LOQA_VAD_MAX_SEGMENT_MS")
	overrideInt(&cfg.VAD.QueueSegments, "LOQA_VAD_QUEUE_SEGMENTS")
	overrideString(&cfg.Model.ID, "LOQA_MODEL_ID")
	overrideString(&cfg.Model.Directory, "LOQA_MODEL_DIRECTORY")
	overrideBool(&cfg.Model.LoadOnStart, "LOQA_MODEL_LOAD_ON_START")
	overrideInt(&cfg.Model.IdleTimeoutMS, "LOQA_MODEL_IDLE_TIMEOUT_MS")
	overrideInt(&cfg.Model.CheckIntervalMS, "LOQA_MODEL_CHECK_INTERVAL_MS")
	overrideBool(&cfg.Model.UnloadAfterUse, "LOQA_MODEL_UNLOAD_AFTER_USE")
	overrideString(&cfg.STT.Mode, "LOQA_STT_MODE")
	overrideString(&cfg.STT.Command, "LOQA_STT_COMMAND")
	overrideString(&cfg.STT.Language, "LOQA_STT_LANGUAGE")
	overrideInt(&cfg.STT.TimeoutMS, "LOQA_STT_TIMEOUT_MS")
	overrideBool(&cfg.STT.Filter, "LOQA_STT_FILTER")
	overrideBool(&cfg.Selector.Enabled, "LOQA_SELECTOR_ENABLED")
	overrideString(&cfg.Selector.Scorer, "LOQA_SELECTOR_SCORER")
	overrideInt(&cfg.Selector.TimeoutMS, "LOQA_SELECTOR_TIMEOUT_MS")
	overrideInt(&cfg.Selector.TopK, "LOQA_SELECTOR_TOP_K")
	overrideFloat(&cfg.Selector.MinScore, "LOQA_SELECTOR_MIN_SCORE")
	overrideFloat(&cfg.Selector.Hysteresis, "LOQA_SELECTOR_HYSTERESIS")
	overrideBool(&cfg.Selector.BlendManual, "LOQA_SELECTOR_BLEND_MANUAL")
	overrideStringSlice(&cfg.Jargon.EnabledProfiles, "LOQA_JARGON_ENABLED_PROFILES")
	overrideStringSlice(&cfg.Jargon.CustomTerms, "LOQA_JARGON_CUSTOM_TERMS")
	overrideCorrections(&cfg.Jargon.CustomCorrections, "LOQA_JARGON_CUSTOM_CORRECTIONS")
	overrideString(&cfg.Jargon.PacksFile, "LOQA_JARGON_PACKS_FILE")
	overrideFloat(&cfg.Jargon.FuzzyThreshold, "LOQA_JARGON_FUZZY_THRESHOLD")
	overrideBool(&cfg.PostProcess.Enabled, "LOQA_POST_PROCESS_ENABLED")
	overrideString(&cfg.PostProcess.Mode, "LOQA_POST_PROCESS_MODE")
	overrideString(&cfg.PostProcess.Endpoint, "LOQA_POST_PROCESS_ENDPOINT")
	overrideString(&cfg.PostProcess.Command, "LOQA_POST_PROCESS_COMMAND")
	overrideString(&cfg.PostProcess.Model, "LOQA_POST_PROCESS_MODEL")
	overrideString(&cfg.PostProcess.APIKey, "LOQA_POST_PROCESS_API_KEY")
	overrideInt(&cfg.PostProcess.MaxTokens, "LOQA_POST_PROCESS_MAX_TOKENS")
	overrideFloat(&cfg.PostProcess.Temperature, "LOQA_POST_PROCESS_TEMPERATURE")
	overrideInt(&cfg.PostProcess.TimeoutMS, "LOQA_POST_PROCESS_TIMEOUT_MS")
	overrideString(&cfg.PostProcess.PromptID, "LOQA_POST_PROCESS_PROMPT_ID")
	overrideBool(&cfg.PostProcess.AutoPrompt, "LOQA_POST_PROCESS_AUTO_PROMPT")
	overrideString(&cfg.Embeddings.Model, "LOQA_EMBEDDINGS_MODEL")
	overrideString(&cfg.Embeddings.APIKey, "LOQA_EMBEDDINGS_API_KEY")
	overrideString(&cfg.Embeddings.BaseURL, "LOQA_EMBEDDINGS_BASE_URL")
	overrideInt(&cfg.Embeddings.Dimensions, "LOQA_EMBEDDINGS_DIMENSIONS")
	overrideBool(&cfg.Expansion.Enabled, "LOQA_EXPANSION_ENABLED")
	overrideString(&cfg.Expansion.WorkspaceRoot, "LOQA_EXPANSION_WORKSPACE_ROOT")
	overrideBool(&cfg.Expansion.RequireGit, "LOQA_EXPANSION_REQUIRE_GIT")
	overrideInt(&cfg.Expansion.MaxFiles, "LOQA_EXPANSION_MAX_FILES")
	overrideInt(&cfg.Expansion.MaxDepth, "LOQA_EXPANSION_MAX_DEPTH")
	overrideInt(&cfg.Expansion.CacheTTLMS, "LOQA_EXPANSION_CACHE_TTL_MS")
	overrideInt(&cfg.Expansion.SnippetMaxLines, "LOQA_EXPANSION_SNIPPET_MAX_LINES")
	overrideInt(&cfg.Expansion.SnippetMaxBytes, "LOQA_EXPANSION_SNIPPET_MAX_BYTES")
	overrideString(&cfg.Control.Mode, "LOQA_CONTROL_MODE")
	overrideBool(&cfg.Control.Signals, "LOQA_CONTROL_SIGNALS")
	overrideString(&cfg.Control.LockFile, "LOQA_CONTROL_LOCK_FILE")
	overrideString(&cfg.Delivery.Mode, "LOQA_DELIVERY_MODE")
	overrideString(&cfg.Delivery.Command, "LOQA_DELIVERY_COMMAND")
	overrideInt(&cfg.Delivery.TimeoutMS, "LOQA_DELIVERY_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

// overrideCorrections reads "from=to" pairs separated by commas.
func overrideCorrections(target *[]CorrectionConfig, envKey string) {
	value, ok := os.LookupEnv(envKey)
	if !ok {
		return
	}
	var out []CorrectionConfig
	for _, pair := range strings.Split(value, ",") {
		from, to, found := strings.Cut(pair, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !found || from == "" || to == "" {
			continue
		}
		out = append(out, CorrectionConfig{From: from, To: to})
	}
	if len(out) > 0 {
		*target = out
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	switch cfg.Telemetry.TraceExporter {
	case "", "none", "stdout", "otlp":
	default:
		return errors.New("telemetry.trace_exporter must be one of none|stdout|otlp")
	}
	switch cfg.Audio.Source {
	case "command":
		if cfg.Audio.Command == "" {
			return errors.New("audio.command must be set when source=command")
		}
	case "wav":
		if cfg.Audio.File == "" {
			return errors.New("audio.file must be set when source=wav")
		}
	default:
		return errors.New("audio.source must be one of command|wav")
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	if cfg.Audio.FrameDurationMS <= 0 {
		return errors.New("audio.frame_duration_ms must be positive")
	}
	if cfg.Audio.QueueFrames <= 0 {
		return errors.New("audio.queue_frames must be >= 1")
	}
	if cfg.VAD.Threshold <= 0 || cfg.VAD.Threshold >= 1 {
		return errors.New("vad.threshold must be between 0 and 1")
	}
	if cfg.VAD.Smoothing <= 0 || cfg.VAD.Smoothing > 1 {
		return errors.New("vad.smoothing must be in (0, 1]")
	}
	if cfg.VAD.TrailingSilenceMS <= 0 {
		return errors.New("vad.trailing_silence_ms must be positive")
	}
	if cfg.VAD.MinSegmentMS < 0 {
		return errors.New("vad.min_segment_ms must be >= 0")
	}
	if cfg.VAD.MaxSegmentMS <= cfg.VAD.MinSegmentMS {
		return errors.New("vad.max_segment_ms must be greater than min_segment_ms")
	}
	if cfg.VAD.MaxSegmentMS < cfg.Audio.FrameDurationMS {
		return errors.New("vad.max_segment_ms must cover at least one frame")
	}
	if cfg.VAD.QueueSegments <= 0 {
		return errors.New("vad.queue_segments must be >= 1")
	}
	if cfg.Model.ID == "" {
		return errors.New("model.id must not be empty")
	}
	if cfg.Model.IdleTimeoutMS < 0 {
		return errors.New("model.idle_timeout_ms must be >= 0")
	}
	if cfg.Model.CheckIntervalMS <= 0 {
		return errors.New("model.check_interval_ms must be positive")
	}
	switch cfg.STT.Mode {
	case "mock":
	case "exec":
		if cfg.STT.Command == "" {
			return errors.New("stt.command must be set when mode=exec")
		}
	default:
		return errors.New("stt.mode must be one of mock|exec")
	}
	if cfg.Selector.Enabled {
		switch cfg.Selector.Scorer {
		case "lexical", "embedding":
		default:
			return errors.New("selector.scorer must be one of lexical|embedding")
		}
		if cfg.Selector.Scorer == "embedding" && cfg.Embeddings.Model == "" {
			return errors.New("embeddings.model must be set when selector.scorer=embedding")
		}
	}
	for _, c := range cfg.Jargon.CustomCorrections {
		if strings.TrimSpace(c.From) == "" || strings.TrimSpace(c.To) == "" {
			return errors.New("jargon.custom_corrections entries need non-empty from and to")
		}
	}
	if cfg.Jargon.FuzzyThreshold < 0 {
		return errors.New("jargon.fuzzy_threshold must be >= 0")
	}
	if cfg.PostProcess.Enabled {
		switch cfg.PostProcess.Mode {
		case "mock", "ollama", "openai", "exec":
		default:
			return errors.New("post_process.mode must be one of mock|ollama|openai|exec")
		}
		if cfg.PostProcess.Mode == "ollama" && cfg.PostProcess.Endpoint == "" {
			return errors.New("post_process.endpoint must be set when mode=ollama")
		}
		if cfg.PostProcess.Mode == "exec" && cfg.PostProcess.Command == "" {
			return errors.New("post_process.command must be set when mode=exec")
		}
		if cfg.PostProcess.MaxTokens < 0 {
			return errors.New("post_process.max_tokens must be >= 0")
		}
	}
	if cfg.Expansion.Enabled {
		if cfg.Expansion.MaxFiles <= 0 {
			return errors.New("expansion.max_files must be >= 1")
		}
		if cfg.Expansion.MaxDepth <= 0 {
			return errors.New("expansion.max_depth must be >= 1")
		}
		if cfg.Expansion.SnippetMaxLines <= 0 || cfg.Expansion.SnippetMaxBytes <= 0 {
			return errors.New("expansion snippet limits must be positive")
		}
	}
	switch cfg.Control.Mode {
	case "toggle", "push_to_talk":
	default:
		return errors.New("control.mode must be one of toggle|push_to_talk")
	}
	for _, mode := range strings.Split(cfg.Delivery.Mode, ",") {
		switch strings.TrimSpace(mode) {
		case "log":
		case "command":
			if cfg.Delivery.Command == "" {
				return errors.New("delivery.command must be set when mode=command")
			}
		case "bus":
			if !cfg.Bus.Enabled {
				return errors.New("delivery.mode=bus requires bus.enabled")
			}
		default:
			return fmt.Errorf("delivery.mode %q must be a list of log|command|bus", mode)
		}
	}
	return nil
}
