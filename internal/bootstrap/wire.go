package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"interviewdesk/internal/audio"
	"interviewdesk/internal/config"
	"interviewdesk/internal/logging"
	"interviewdesk/internal/ports"
	"interviewdesk/internal/providers/deepgram"
	"interviewdesk/internal/script"
	"interviewdesk/internal/speech"
	"interviewdesk/internal/store"
	"interviewdesk/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.InterviewController
	// History is nil when the configured store cannot list results.
	History ports.ResultHistory
	Config  config.Config
	Logger  zerolog.Logger

	closers []io.Closer
}

// Close ends any running interview and releases the store.
func (s Services) Close() error {
	var errs []error
	if s.Controller != nil {
		errs = append(errs, s.Controller.Close())
	}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Build loads configuration and wires all backend dependencies. The log
// format falls back to defaultLogFormat when none is configured.
func Build(eventSink ports.EventSink, defaultLogFormat string) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	format := cfg.Log.Format
	if format == "" {
		format = defaultLogFormat
	}
	return Assemble(cfg, logging.New(cfg.Log.Level, format, os.Stderr), eventSink)
}

// Assemble wires the runtime graph from an already loaded configuration.
func Assemble(cfg config.Config, logger zerolog.Logger, eventSink ports.EventSink) (Services, error) {
	resultStore, history, closer, err := openStore(cfg.Store, logger)
	if err != nil {
		return Services{}, err
	}

	deps := usecase.Dependencies{
		Capture: audio.NewFFMPEGCapture(cfg.Audio.FFMPEGCommand, ports.CaptureConfig{
			SampleRate:   cfg.Audio.SampleRate,
			Channels:     cfg.Audio.Channels,
			InputFormat:  cfg.Audio.InputFormat,
			InputDevice:  cfg.Audio.InputDevice,
			CameraFormat: cfg.Audio.CameraFormat,
			CameraDevice: cfg.Audio.CameraDevice,
			ScreenFormat: cfg.Audio.ScreenFormat,
			ScreenDevice: cfg.Audio.ScreenDevice,
		}),
		Clips:   audio.NewClipPlayer(cfg.Audio.FFPlayCommand, cfg.Script.ClipDir),
		Scripts: scriptSource(cfg.Script),
		Store:   resultStore,
		Events:  eventSink,
		Logger:  logger,
	}

	dgCfg := deepgram.Config{
		APIKey:          cfg.Deepgram.APIKey,
		APIBaseURL:      cfg.Deepgram.APIBaseURL,
		Model:           cfg.Deepgram.Model,
		Language:        cfg.Deepgram.Language,
		SmartFormat:     cfg.Deepgram.SmartFormat,
		Endpointing:     cfg.Deepgram.Endpointing,
		UtteranceEnd:    cfg.Deepgram.UtteranceEnd,
		SpeakModel:      cfg.Deepgram.SpeakModel,
		SpeakSampleRate: cfg.Deepgram.SpeakSampleRate,
	}
	// Without a key both speech capabilities are unsupported: prerecorded
	// clips carry the interviewer and only typed answers are accepted.
	if dgCfg.APIKey != "" {
		deps.Synthesizer = deepgram.NewSynthesizer(dgCfg, audio.NewFFPlayPlayer(cfg.Audio.FFPlayCommand), logger)
		deps.Transcriber = deepgram.NewProvider(dgCfg, logger)
	} else {
		logger.Warn().Msg("DEEPGRAM_API_KEY is not set; speech synthesis and recognition are disabled")
	}

	controller := usecase.NewInterviewController(deps, controllerConfig(cfg))

	services := Services{
		Controller: controller,
		History:    history,
		Config:     cfg,
		Logger:     logger,
	}
	if closer != nil {
		services.closers = append(services.closers, closer)
	}
	return services, nil
}

func controllerConfig(cfg config.Config) usecase.Config {
	return usecase.Config{
		Output: speech.OutputConfig{
			Voice:         cfg.Turn.Voice,
			StartBase:     cfg.Turn.StartBase,
			StartPerChar:  cfg.Turn.StartPerChar,
			SafetyBase:    cfg.Turn.SafetyBase,
			SafetyPerChar: cfg.Turn.SafetyPerChar,
		},
		Input: speech.InputConfig{
			Streaming: ports.StreamingConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				InterimResults: true,
			},
			ChunkSize:      cfg.Audio.ChunkSize,
			SilenceWindow:  cfg.Turn.SilenceWindow,
			MaxRestarts:    cfg.Turn.MaxRestarts,
			RestartBackoff: cfg.Turn.RestartBackoff,
		},
		ResumeDelay:   cfg.Turn.ResumeDelay,
		SegmentGap:    cfg.Turn.SegmentGap,
		AutoSubmit:    cfg.Turn.AutoSubmit,
		SubmitTimeout: cfg.Turn.SubmitTimeout,
	}
}

func scriptSource(cfg config.ScriptConfig) ports.ScriptSource {
	if cfg.Path != "" {
		return script.NewFileSource(cfg.Path)
	}
	return script.NewBankSource(nil)
}

func openStore(cfg config.StoreConfig, logger zerolog.Logger) (ports.ResultStore, ports.ResultHistory, io.Closer, error) {
	switch cfg.Driver {
	case config.StoreSupabase:
		s, err := store.NewSupabase(store.SupabaseConfig{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseKey,
			Table:          cfg.SupabaseTable,
			Bucket:         cfg.SupabaseBucket,
		}, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, nil, nil, nil
	case config.StoreNone:
		return store.NewDiscard(logger), nil, nil, nil
	default:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, nil, nil, fmt.Errorf("create results directory: %w", err)
			}
		}
		s, err := store.OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, s, nil
	}
}
