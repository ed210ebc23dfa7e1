package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	app_errors "flowchat/backend/internal/errors"
	"flowchat/backend/internal/model"
	"flowchat/backend/internal/repository"
)

type SettingsService struct {
	repo repository.Repository
}

func NewSettingsService(repo repository.Repository) *SettingsService {
	return &SettingsService{repo: repo}
}

// InitAndGet returns the stored settings, seeding the store with defaults on
// first start.
func (s *SettingsService) InitAndGet(ctx context.Context, defaults *model.Settings) (*model.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err == nil {
		slog.Info("Found existing settings in store", "main_model", settings.MainModel)
		return settings, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	slog.Info("No settings found, saving defaults", "main_model", defaults.MainModel)
	initial := *defaults
	if initial.SupportModel == "" {
		initial.SupportModel = initial.MainModel
	}
	if err := s.repo.SaveSettings(ctx, &initial); err != nil {
		return nil, fmt.Errorf("failed to save initial settings: %w", err)
	}
	return &initial, nil
}

// Get retrieves the current settings.
func (s *SettingsService) Get(ctx context.Context) (*model.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// Save validates and stores settings. An empty support model falls back to
// the main model.
func (s *SettingsService) Save(ctx context.Context, settings *model.Settings) error {
	settings.MainModel = strings.TrimSpace(settings.MainModel)
	settings.SupportModel = strings.TrimSpace(settings.SupportModel)
	settings.ImageModel = strings.TrimSpace(settings.ImageModel)
	if settings.MainModel == "" {
		return fmt.Errorf("%w: main model is required", app_errors.ErrValidation)
	}
	if settings.SupportModel == "" {
		settings.SupportModel = settings.MainModel
	}
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	slog.Info("Settings updated", "main_model", settings.MainModel, "support_model", settings.SupportModel)
	return nil
}

// SupportModel resolves the model used for titles and memory extraction.
func (s *SettingsService) SupportModel(ctx context.Context) (string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	if settings.SupportModel != "" {
		return settings.SupportModel, nil
	}
	return settings.MainModel, nil
}
