package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the desktop app and the daemon.
type Config struct {
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Script   ScriptConfig
	Turn     TurnConfig
	Store    StoreConfig
	HTTP     HTTPConfig
	Log      LogConfig
}

type DeepgramConfig struct {
	APIKey          string
	APIBaseURL      string
	Model           string
	Language        string
	SmartFormat     bool
	Endpointing     int
	UtteranceEnd    int
	SpeakModel      string
	SpeakSampleRate int
}

type AudioConfig struct {
	FFMPEGCommand string
	FFPlayCommand string
	InputFormat   string
	InputDevice   string
	CameraFormat  string
	CameraDevice  string
	ScreenFormat  string
	ScreenDevice  string
	SampleRate    int
	Channels      int
	ChunkSize     int
}

type ScriptConfig struct {
	// Path is empty when the built-in question bank should be used.
	Path    string
	ClipDir string
}

type TurnConfig struct {
	Voice          string
	SilenceWindow  time.Duration
	ResumeDelay    time.Duration
	SegmentGap     time.Duration
	AutoSubmit     bool
	MaxRestarts    int
	RestartBackoff time.Duration
	StartBase      time.Duration
	StartPerChar   time.Duration
	SafetyBase     time.Duration
	SafetyPerChar  time.Duration
	SubmitTimeout  time.Duration
}

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StoreSupabase = "supabase"
	StoreNone     = "none"
)

type StoreConfig struct {
	Driver         string
	SQLitePath     string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseTable  string
	SupabaseBucket string
}

type HTTPConfig struct {
	Address string
}

type LogConfig struct {
	Level string
	// Format is empty when the entry point should pick its own default.
	Format string
}

// Load reads .env when present, then resolves configuration from environment
// variables and sensible defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	configDir := filepath.Join(home, ".config", "interviewdesk")
	dataDir := filepath.Join(home, ".local", "share", "interviewdesk")

	scriptPath := strings.TrimSpace(os.Getenv("INTERVIEWDESK_SCRIPT_FILE"))
	if scriptPath == "" {
		scriptPath = existingOrEmpty(filepath.Join(configDir, "script.txt"))
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:          strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:      envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:           envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:        strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat:     envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
			Endpointing:     envOrDefaultInt("DEEPGRAM_ENDPOINTING_MS", 300),
			UtteranceEnd:    envOrDefaultInt("DEEPGRAM_UTTERANCE_END_MS", 1000),
			SpeakModel:      envOrDefault("DEEPGRAM_TTS_MODEL", "aura-2-thalia-en"),
			SpeakSampleRate: envOrDefaultInt("DEEPGRAM_TTS_SAMPLE_RATE", 48000),
		},
		Audio: AudioConfig{
			FFMPEGCommand: envOrDefault("INTERVIEWDESK_FFMPEG_COMMAND", "ffmpeg"),
			FFPlayCommand: envOrDefault("INTERVIEWDESK_FFPLAY_COMMAND", "ffplay"),
			InputFormat:   envOrDefault("INTERVIEWDESK_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice: firstNonEmpty(
				os.Getenv("INTERVIEWDESK_AUDIO_INPUT_DEVICE"),
				os.Getenv("PULSE_SOURCE"),
				"default",
			),
			CameraFormat: envOrDefault("INTERVIEWDESK_CAMERA_FORMAT", "v4l2"),
			CameraDevice: envOrDefault("INTERVIEWDESK_CAMERA_DEVICE", "/dev/video0"),
			ScreenFormat: envOrDefault("INTERVIEWDESK_SCREEN_FORMAT", "x11grab"),
			ScreenDevice: firstNonEmpty(os.Getenv("INTERVIEWDESK_SCREEN_DEVICE"), os.Getenv("DISPLAY"), ":0.0"),
			SampleRate:   envOrDefaultInt("INTERVIEWDESK_SAMPLE_RATE", 16000),
			Channels:     envOrDefaultInt("INTERVIEWDESK_CHANNELS", 1),
			ChunkSize:    envOrDefaultInt("INTERVIEWDESK_AUDIO_CHUNK_SIZE", 4096),
		},
		Script: ScriptConfig{
			Path:    scriptPath,
			ClipDir: envOrDefault("INTERVIEWDESK_CLIP_DIR", filepath.Join(configDir, "clips")),
		},
		Turn: TurnConfig{
			Voice:          strings.TrimSpace(os.Getenv("INTERVIEWDESK_VOICE")),
			SilenceWindow:  envOrDefaultMillis("INTERVIEWDESK_SILENCE_WINDOW_MS", 1500),
			ResumeDelay:    envOrDefaultMillis("INTERVIEWDESK_RESUME_DELAY_MS", 400),
			SegmentGap:     envOrDefaultMillis("INTERVIEWDESK_SEGMENT_GAP_MS", 600),
			AutoSubmit:     envOrDefaultBool("INTERVIEWDESK_AUTO_SUBMIT", false),
			MaxRestarts:    envOrDefaultInt("INTERVIEWDESK_RECOGNIZER_MAX_RESTARTS", 3),
			RestartBackoff: envOrDefaultMillis("INTERVIEWDESK_RECOGNIZER_RESTART_BACKOFF_MS", 500),
			StartBase:      envOrDefaultMillis("INTERVIEWDESK_SYNTH_START_BASE_MS", 2000),
			StartPerChar:   envOrDefaultMillis("INTERVIEWDESK_SYNTH_START_PER_CHAR_MS", 30),
			SafetyBase:     envOrDefaultMillis("INTERVIEWDESK_SYNTH_SAFETY_BASE_MS", 4000),
			SafetyPerChar:  envOrDefaultMillis("INTERVIEWDESK_SYNTH_SAFETY_PER_CHAR_MS", 80),
			SubmitTimeout:  envOrDefaultMillis("INTERVIEWDESK_SUBMIT_TIMEOUT_MS", 10000),
		},
		Store: StoreConfig{
			Driver:         strings.ToLower(envOrDefault("INTERVIEWDESK_STORE", StoreSQLite)),
			SQLitePath:     envOrDefault("INTERVIEWDESK_SQLITE_PATH", filepath.Join(dataDir, "results.sqlite")),
			SupabaseURL:    strings.TrimSpace(os.Getenv("SUPABASE_URL")),
			SupabaseKey:    strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY")),
			SupabaseTable:  envOrDefault("SUPABASE_RESULTS_TABLE", "interview_results"),
			SupabaseBucket: strings.TrimSpace(os.Getenv("SUPABASE_TRANSCRIPT_BUCKET")),
		},
		HTTP: HTTPConfig{
			Address: envOrDefault("INTERVIEWDESK_HTTP_ADDRESS", ":8080"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envOrDefault("INTERVIEWDESK_LOG_LEVEL", "info")),
			Format: strings.ToLower(strings.TrimSpace(os.Getenv("INTERVIEWDESK_LOG_FORMAT"))),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Deepgram.SpeakSampleRate <= 0 {
		cfg.Deepgram.SpeakSampleRate = 48000
	}
	if cfg.Turn.SilenceWindow <= 0 {
		cfg.Turn.SilenceWindow = 1500 * time.Millisecond
	}
	if cfg.Turn.MaxRestarts < 0 {
		cfg.Turn.MaxRestarts = 3
	}
	switch cfg.Store.Driver {
	case StoreSQLite, StoreSupabase, StoreNone:
	default:
		cfg.Store.Driver = StoreSQLite
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

func existingOrEmpty(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// envOrDefaultMillis reads a non-negative millisecond count.
func envOrDefaultMillis(key string, fallback int) time.Duration {
	ms := envOrDefaultInt(key, fallback)
	if ms < 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
