// Package devices owns the camera, microphone, and screen capture streams
// for an interview session.
package devices

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
)

// Manager grants and releases capture capabilities. Every held stream is
// owned here; consumers only read from the microphone.
type Manager struct {
	capture ports.MediaCapture
	logger  zerolog.Logger

	mu    sync.Mutex
	held  map[domain.DeviceKind]ports.MediaStream
	state map[domain.DeviceKind]domain.DeviceCapability
}

func NewManager(capture ports.MediaCapture, logger zerolog.Logger) *Manager {
	m := &Manager{
		capture: capture,
		logger:  logger.With().Str("component", "devices").Logger(),
		held:    make(map[domain.DeviceKind]ports.MediaStream),
		state:   make(map[domain.DeviceKind]domain.DeviceCapability),
	}
	for _, kind := range domain.DeviceKinds {
		m.state[kind] = domain.DeviceCapability{Kind: kind}
	}
	return m
}

// Request acquires kind. A capability that is already held is reconnected:
// the stale stream is stopped before a new one is opened.
func (m *Manager) Request(ctx context.Context, kind domain.DeviceKind) (domain.DeviceCapability, error) {
	m.mu.Lock()
	stale := m.held[kind]
	delete(m.held, kind)
	m.mu.Unlock()

	if stale != nil {
		if err := stale.Stop(); err != nil {
			m.logger.Debug().Err(err).Str("kind", string(kind)).Msg("stale stream stop reported an error")
		}
	}

	stream, err := m.capture.Request(ctx, kind)
	if err != nil {
		var permErr *domain.PermissionError
		if !errors.As(err, &permErr) {
			permErr = &domain.PermissionError{Kind: kind, Err: err}
		}
		capability := domain.DeviceCapability{Kind: kind, Error: permErr.Error()}
		m.mu.Lock()
		m.state[kind] = capability
		m.mu.Unlock()
		m.logger.Warn().Err(permErr).Str("kind", string(kind)).Msg("capture permission unavailable")
		return capability, permErr
	}

	capability := domain.DeviceCapability{Kind: kind, Granted: true, StreamID: stream.ID()}
	m.mu.Lock()
	raced := m.held[kind]
	m.held[kind] = stream
	m.state[kind] = capability
	m.mu.Unlock()

	if raced != nil {
		_ = raced.Stop()
	}
	m.logger.Debug().Str("kind", string(kind)).Str("stream_id", stream.ID()).Msg("capture granted")
	return capability, nil
}

// Release stops kind. Releasing a capability that is not held is a no-op.
func (m *Manager) Release(kind domain.DeviceKind) error {
	m.mu.Lock()
	stream := m.held[kind]
	delete(m.held, kind)
	previous := m.state[kind]
	m.state[kind] = domain.DeviceCapability{Kind: kind, Skipped: previous.Skipped}
	m.mu.Unlock()

	if stream == nil {
		return nil
	}
	m.logger.Debug().Str("kind", string(kind)).Msg("capture released")
	return stream.Stop()
}

// ReleaseAll stops every held stream.
func (m *Manager) ReleaseAll() error {
	var errs []error
	for _, kind := range domain.DeviceKinds {
		if err := m.Release(kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MarkSkipped records kind as explicitly unavailable for this session.
func (m *Manager) MarkSkipped(kind domain.DeviceKind) domain.DeviceCapability {
	capability := domain.DeviceCapability{Kind: kind, Skipped: true}
	m.mu.Lock()
	m.state[kind] = capability
	m.mu.Unlock()
	return capability
}

func (m *Manager) Snapshot() domain.DeviceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.DeviceSnapshot{
		Camera:     m.state[domain.DeviceCamera],
		Microphone: m.state[domain.DeviceMicrophone],
		Screen:     m.state[domain.DeviceScreen],
	}
}

// Microphone returns the held microphone stream for reading.
func (m *Manager) Microphone() (io.Reader, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stream, ok := m.held[domain.DeviceMicrophone]
	if !ok {
		return nil, false
	}
	return stream, true
}

// Held reports whether kind currently has a live stream.
func (m *Manager) Held(kind domain.DeviceKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[kind]
	return ok
}
