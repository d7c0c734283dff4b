package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEEPGRAM_API_KEY", "DEEPGRAM_API_BASE", "DEEPGRAM_MODEL", "DEEPGRAM_LANGUAGE", "DEEPGRAM_SMART_FORMAT",
		"DEEPGRAM_TTS_MODEL", "DEEPGRAM_TTS_SAMPLE_RATE", "DEEPGRAM_ENDPOINTING_MS", "DEEPGRAM_UTTERANCE_END_MS",
		"INTERVIEWDESK_SCRIPT_FILE", "INTERVIEWDESK_CLIP_DIR", "INTERVIEWDESK_AUDIO_INPUT_DEVICE", "PULSE_SOURCE",
		"INTERVIEWDESK_SCREEN_DEVICE", "DISPLAY", "INTERVIEWDESK_SAMPLE_RATE", "INTERVIEWDESK_CHANNELS",
		"INTERVIEWDESK_AUDIO_CHUNK_SIZE", "INTERVIEWDESK_SILENCE_WINDOW_MS", "INTERVIEWDESK_SEGMENT_GAP_MS",
		"INTERVIEWDESK_AUTO_SUBMIT", "INTERVIEWDESK_RECOGNIZER_MAX_RESTARTS", "INTERVIEWDESK_STORE",
		"INTERVIEWDESK_SQLITE_PATH", "SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_TRANSCRIPT_BUCKET",
		"INTERVIEWDESK_HTTP_ADDRESS", "INTERVIEWDESK_LOG_LEVEL", "INTERVIEWDESK_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	clearEnv(t)
	t.Setenv("HOME", home)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Deepgram.APIBaseURL != "https://api.deepgram.com/v1" || cfg.Deepgram.Model != "nova-2" || !cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram defaults: %+v", cfg.Deepgram)
	}
	if cfg.Deepgram.SpeakModel != "aura-2-thalia-en" || cfg.Deepgram.SpeakSampleRate != 48000 {
		t.Fatalf("unexpected speak defaults: %+v", cfg.Deepgram)
	}
	if cfg.Audio.FFMPEGCommand != "ffmpeg" || cfg.Audio.FFPlayCommand != "ffplay" || cfg.Audio.InputDevice != "default" || cfg.Audio.ScreenDevice != ":0.0" {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 || cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("unexpected audio sizes: %+v", cfg.Audio)
	}
	if cfg.Script.Path != "" {
		t.Fatalf("expected built-in bank when no script file exists, got %q", cfg.Script.Path)
	}
	if cfg.Script.ClipDir != filepath.Join(home, ".config", "interviewdesk", "clips") {
		t.Fatalf("unexpected clip dir: %q", cfg.Script.ClipDir)
	}
	if cfg.Turn.SilenceWindow != 1500*time.Millisecond || cfg.Turn.ResumeDelay != 400*time.Millisecond || cfg.Turn.SegmentGap != 600*time.Millisecond {
		t.Fatalf("unexpected turn timing: %+v", cfg.Turn)
	}
	if cfg.Turn.AutoSubmit || cfg.Turn.MaxRestarts != 3 || cfg.Turn.SubmitTimeout != 10*time.Second {
		t.Fatalf("unexpected turn defaults: %+v", cfg.Turn)
	}
	if cfg.Turn.StartBase != 2*time.Second || cfg.Turn.StartPerChar != 30*time.Millisecond || cfg.Turn.SafetyPerChar != 80*time.Millisecond {
		t.Fatalf("unexpected synthesis windows: %+v", cfg.Turn)
	}
	if cfg.Store.Driver != StoreSQLite || cfg.Store.SQLitePath != filepath.Join(home, ".local", "share", "interviewdesk", "results.sqlite") {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.HTTP.Address != ":8080" || cfg.Log.Level != "info" || cfg.Log.Format != "" {
		t.Fatalf("unexpected http/log defaults: %+v %+v", cfg.HTTP, cfg.Log)
	}
}

func TestLoadPicksUpScriptFileInConfigDir(t *testing.T) {
	home := t.TempDir()
	clearEnv(t)
	t.Setenv("HOME", home)

	script := filepath.Join(home, ".config", "interviewdesk", "script.txt")
	if err := os.MkdirAll(filepath.Dir(script), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(script, []byte("closing: Bye\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Script.Path != script {
		t.Fatalf("expected config dir script, got %q", cfg.Script.Path)
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	home := t.TempDir()
	clearEnv(t)
	t.Setenv("HOME", home)
	t.Setenv("DEEPGRAM_API_KEY", " test-key ")
	t.Setenv("DEEPGRAM_MODEL", "nova-3")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "off")
	t.Setenv("DEEPGRAM_TTS_MODEL", "aura-2-orion-en")
	t.Setenv("INTERVIEWDESK_SCRIPT_FILE", "/tmp/custom.script")
	t.Setenv("PULSE_SOURCE", "mic0")
	t.Setenv("INTERVIEWDESK_SAMPLE_RATE", "48000")
	t.Setenv("INTERVIEWDESK_SILENCE_WINDOW_MS", "900")
	t.Setenv("INTERVIEWDESK_SEGMENT_GAP_MS", "0")
	t.Setenv("INTERVIEWDESK_AUTO_SUBMIT", "yes")
	t.Setenv("INTERVIEWDESK_STORE", "Supabase")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
	t.Setenv("SUPABASE_TRANSCRIPT_BUCKET", "transcripts")
	t.Setenv("INTERVIEWDESK_HTTP_ADDRESS", "127.0.0.1:9090")
	t.Setenv("INTERVIEWDESK_LOG_LEVEL", "DEBUG")
	t.Setenv("INTERVIEWDESK_LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Deepgram.APIKey != "test-key" || cfg.Deepgram.Model != "nova-3" || cfg.Deepgram.SmartFormat || cfg.Deepgram.SpeakModel != "aura-2-orion-en" {
		t.Fatalf("unexpected deepgram config: %+v", cfg.Deepgram)
	}
	if cfg.Script.Path != "/tmp/custom.script" || cfg.Audio.InputDevice != "mic0" || cfg.Audio.SampleRate != 48000 {
		t.Fatalf("unexpected script/audio config: %+v %+v", cfg.Script, cfg.Audio)
	}
	if cfg.Turn.SilenceWindow != 900*time.Millisecond || cfg.Turn.SegmentGap != 0 || !cfg.Turn.AutoSubmit {
		t.Fatalf("unexpected turn config: %+v", cfg.Turn)
	}
	if cfg.Store.Driver != StoreSupabase || cfg.Store.SupabaseURL != "https://x.supabase.co" || cfg.Store.SupabaseBucket != "transcripts" {
		t.Fatalf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.HTTP.Address != "127.0.0.1:9090" || cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected http/log config: %+v %+v", cfg.HTTP, cfg.Log)
	}
}

func TestLoadClampsInvalidValues(t *testing.T) {
	home := t.TempDir()
	clearEnv(t)
	t.Setenv("HOME", home)
	t.Setenv("INTERVIEWDESK_SAMPLE_RATE", "-1")
	t.Setenv("INTERVIEWDESK_CHANNELS", "zero")
	t.Setenv("INTERVIEWDESK_AUDIO_CHUNK_SIZE", "12")
	t.Setenv("INTERVIEWDESK_SILENCE_WINDOW_MS", "-50")
	t.Setenv("INTERVIEWDESK_RECOGNIZER_MAX_RESTARTS", "-2")
	t.Setenv("INTERVIEWDESK_STORE", "mongodb")
	t.Setenv("INTERVIEWDESK_LOG_LEVEL", "verbose")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 || cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("expected audio fallbacks, got %+v", cfg.Audio)
	}
	if cfg.Turn.SilenceWindow != 1500*time.Millisecond || cfg.Turn.MaxRestarts != 3 {
		t.Fatalf("expected turn fallbacks, got %+v", cfg.Turn)
	}
	if cfg.Store.Driver != StoreSQLite || cfg.Log.Level != "info" {
		t.Fatalf("expected store/log fallbacks, got %+v %+v", cfg.Store, cfg.Log)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	home := t.TempDir()
	clearEnv(t)
	t.Setenv("HOME", home)
	os.Unsetenv("DEEPGRAM_API_KEY")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DEEPGRAM_API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	previous, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(previous) })
	t.Cleanup(func() { os.Unsetenv("DEEPGRAM_API_KEY") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Deepgram.APIKey != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.Deepgram.APIKey)
	}
}
