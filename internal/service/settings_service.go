package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"plate_reader/internal/domain"
	"plate_reader/internal/repository"
)

const (
	settingsKey = "capture_settings"
	modeKey     = "detection_mode"
)

// CaptureControl is the part of the capture controller that configuration touches.
type CaptureControl interface {
	Start(ctx context.Context) error
	Stop()
	State() domain.ControllerState
	Settings() domain.CaptureSettings
	UpdateSettings(s domain.CaptureSettings) error
	Mode() domain.DetectionMode
	SetMode(mode domain.DetectionMode)
}

// SettingsService persists operator settings and applies them to the running controller.
type SettingsService struct {
	repo         repository.SettingsRepository
	ctrl         CaptureControl
	restartDelay time.Duration
	mu           sync.Mutex
}

func NewSettingsService(repo repository.SettingsRepository, ctrl CaptureControl) *SettingsService {
	return &SettingsService{repo: repo, ctrl: ctrl, restartDelay: 500 * time.Millisecond}
}

// Load restores the saved settings and mode. Missing or invalid values fall back to defaults.
func (s *SettingsService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := domain.DefaultCaptureSettings()
	var saved domain.CaptureSettings
	err := s.repo.Get(ctx, settingsKey, &saved)
	switch {
	case err == nil:
		if vErr := saved.Validate(); vErr != nil {
			log.Printf("SettingsService: saved settings are invalid (%v), using defaults", vErr)
		} else {
			settings = saved
		}
	case errors.Is(err, repository.ErrNotFound):
		log.Println("SettingsService: no saved settings, using defaults")
	default:
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := s.ctrl.UpdateSettings(settings); err != nil {
		return err
	}

	var mode domain.DetectionMode
	err = s.repo.Get(ctx, modeKey, &mode)
	switch {
	case err == nil:
		if parsed, pErr := domain.ParseDetectionMode(string(mode)); pErr == nil {
			s.ctrl.SetMode(parsed)
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return fmt.Errorf("failed to load detection mode: %w", err)
	}
	return nil
}

func (s *SettingsService) Get() domain.CaptureSettings {
	return s.ctrl.Settings()
}

// Update validates, applies and saves the settings. A running camera is restarted
// when the device or resolution changed. It reports whether a restart happened.
func (s *SettingsService) Update(ctx context.Context, settings domain.CaptureSettings) (bool, error) {
	if err := settings.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.ctrl.Settings()
	if err := s.ctrl.UpdateSettings(settings); err != nil {
		return false, err
	}
	if err := s.repo.Save(ctx, settingsKey, settings); err != nil {
		return false, fmt.Errorf("failed to save settings: %w", err)
	}

	if !needsRestart(previous, settings) || s.ctrl.State() == domain.StateIdle {
		return false, nil
	}
	log.Printf("SettingsService: camera changed from %q@%s to %q@%s, restarting",
		previous.DeviceSelector, previous.Resolution, settings.DeviceSelector, settings.Resolution)
	s.ctrl.Stop()
	// give the driver a moment to release the device before reopening it
	select {
	case <-time.After(s.restartDelay):
	case <-ctx.Done():
		return true, ctx.Err()
	}
	if err := s.ctrl.Start(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (s *SettingsService) Reset(ctx context.Context) (domain.CaptureSettings, bool, error) {
	defaults := domain.DefaultCaptureSettings()
	restarted, err := s.Update(ctx, defaults)
	return defaults, restarted, err
}

func (s *SettingsService) SetMode(ctx context.Context, mode domain.DetectionMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctrl.SetMode(mode)
	if err := s.repo.Save(ctx, modeKey, mode); err != nil {
		return fmt.Errorf("failed to save detection mode: %w", err)
	}
	return nil
}

func needsRestart(old, updated domain.CaptureSettings) bool {
	return old.DeviceSelector != updated.DeviceSelector || old.Resolution != updated.Resolution
}
