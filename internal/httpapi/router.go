// Package httpapi exposes the interview controller over HTTP for the daemon.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
	"interviewdesk/internal/usecase"
)

// Controller is the slice of usecase.InterviewController the routes drive.
type Controller interface {
	Start(ctx context.Context, req usecase.StartRequest) (domain.Status, error)
	SubmitAnswer(ctx context.Context, text string) (domain.Status, error)
	SubmitVoiceAnswer(ctx context.Context) (domain.Status, error)
	ForceAdvance(ctx context.Context) (domain.Status, error)
	SetDevice(ctx context.Context, kind domain.DeviceKind, on bool) (domain.DeviceSnapshot, error)
	End(ctx context.Context) error
	Status() domain.Status
}

type Handlers struct {
	controller Controller
	history    ports.ResultHistory
	hub        *Hub
}

// NewRouter builds the daemon's echo instance. history may be nil when the
// configured store cannot list results.
func NewRouter(controller Controller, history ports.ResultHistory, hub *Hub, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Debug()
			if v.Status >= http.StatusInternalServerError {
				event = logger.Warn().Err(v.Error)
			}
			event.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Dur("latency", v.Latency).Msg("http request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	Handlers{controller: controller, history: history, hub: hub}.Register(e)
	return e
}

func (h Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.POST("/interviews", h.start)
	e.GET("/interviews/current", h.current)
	e.POST("/interviews/current/answers", h.submitAnswer)
	e.POST("/interviews/current/skip", h.skip)
	e.POST("/interviews/current/voice-answer", h.submitVoiceAnswer)
	e.PUT("/interviews/current/devices/:kind", h.setDevice)
	e.DELETE("/interviews/current", h.end)

	e.GET("/applications/:id/results", h.results)
	if h.hub != nil {
		e.GET("/events", h.hub.Serve)
	}
}

type startBody struct {
	ApplicationID string   `json:"applicationId"`
	JobID         string   `json:"jobId"`
	Mode          string   `json:"mode"`
	SkipDevices   []string `json:"skipDevices"`
}

type answerBody struct {
	Text string `json:"text"`
}

type deviceBody struct {
	On *bool `json:"on"`
}

func (h Handlers) start(c echo.Context) error {
	var body startBody
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, errors.New("invalid request body"))
	}
	mode, err := domain.ParseInterviewMode(body.Mode)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	req := usecase.StartRequest{
		ApplicationID: strings.TrimSpace(body.ApplicationID),
		JobID:         strings.TrimSpace(body.JobID),
		Mode:          mode,
	}
	for _, raw := range body.SkipDevices {
		kind, err := domain.ParseDeviceKind(raw)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, err)
		}
		req.SkipDevices = append(req.SkipDevices, kind)
	}

	status, err := h.controller.Start(c.Request().Context(), req)
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusCreated, status)
}

func (h Handlers) current(c echo.Context) error {
	status := h.controller.Status()
	if status.SessionID == "" {
		return errorJSON(c, http.StatusNotFound, usecase.ErrNoActiveSession)
	}
	return c.JSON(http.StatusOK, status)
}

func (h Handlers) submitAnswer(c echo.Context) error {
	var body answerBody
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, errors.New("invalid request body"))
	}
	status, err := h.controller.SubmitAnswer(c.Request().Context(), body.Text)
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (h Handlers) submitVoiceAnswer(c echo.Context) error {
	status, err := h.controller.SubmitVoiceAnswer(c.Request().Context())
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (h Handlers) skip(c echo.Context) error {
	status, err := h.controller.ForceAdvance(c.Request().Context())
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// setDevice answers 200 even when the device was refused; the snapshot
// carries the permission error for that capability.
func (h Handlers) setDevice(c echo.Context) error {
	kind, err := domain.ParseDeviceKind(c.Param("kind"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}
	var body deviceBody
	if err := c.Bind(&body); err != nil || body.On == nil {
		return errorJSON(c, http.StatusBadRequest, errors.New(`request body must be {"on": true|false}`))
	}

	snapshot, err := h.controller.SetDevice(c.Request().Context(), kind, *body.On)
	var permErr *domain.PermissionError
	if err != nil && !errors.As(err, &permErr) {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

func (h Handlers) end(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	if err := h.controller.End(ctx); err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h Handlers) results(c echo.Context) error {
	if h.history == nil {
		return errorJSON(c, http.StatusNotImplemented, errors.New("result history requires the sqlite store"))
	}
	results, err := h.history.ResultsForApplication(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, results)
}

func commandError(c echo.Context, err error) error {
	var subErr *domain.SubmissionError
	switch {
	case errors.Is(err, usecase.ErrSessionActive):
		return errorJSON(c, http.StatusConflict, err)
	case errors.Is(err, usecase.ErrNoActiveSession):
		return errorJSON(c, http.StatusNotFound, err)
	case errors.As(err, &subErr):
		return errorJSON(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, domain.ErrEmptyScript), errors.Is(err, domain.ErrScriptNotClosed):
		return errorJSON(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errorJSON(c, http.StatusServiceUnavailable, err)
	default:
		return errorJSON(c, http.StatusInternalServerError, err)
	}
}

func errorJSON(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"error": err.Error()})
}
