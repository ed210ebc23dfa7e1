package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app_errors "flowchat/backend/internal/errors"
	"flowchat/backend/internal/model"
	"flowchat/backend/internal/repository"
	mock_repo "flowchat/backend/internal/repository/mocks"
	"flowchat/backend/internal/service"
)

func TestSettingsService_InitAndGet(t *testing.T) {
	ctx := context.Background()
	defaults := &model.Settings{SystemPrompt: "You are helpful", MainModel: "llama3"}

	t.Run("Existing settings win over defaults", func(t *testing.T) {
		repo := mock_repo.NewMockRepository(t)
		stored := &model.Settings{SystemPrompt: "Be brief", MainModel: "qwen2", SupportModel: "phi3"}
		repo.On("GetSettings", ctx).Return(stored, nil).Once()

		settings, err := service.NewSettingsService(repo).InitAndGet(ctx, defaults)
		require.NoError(t, err)
		assert.Equal(t, stored, settings)
	})

	t.Run("Missing settings are seeded from defaults", func(t *testing.T) {
		repo := mock_repo.NewMockRepository(t)
		repo.On("GetSettings", ctx).Return(nil, repository.ErrNotFound).Once()
		repo.On("SaveSettings", ctx, &model.Settings{SystemPrompt: "You are helpful", MainModel: "llama3", SupportModel: "llama3"}).
			Return(nil).Once()

		settings, err := service.NewSettingsService(repo).InitAndGet(ctx, defaults)
		require.NoError(t, err)
		assert.Equal(t, "llama3", settings.SupportModel)
		assert.Empty(t, defaults.SupportModel, "defaults must not be mutated")
	})

	t.Run("Store failure", func(t *testing.T) {
		repo := mock_repo.NewMockRepository(t)
		repo.On("GetSettings", ctx).Return(nil, errors.New("database is locked")).Once()

		_, err := service.NewSettingsService(repo).InitAndGet(ctx, defaults)
		assert.ErrorContains(t, err, "database is locked")
	})
}

func TestSettingsService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("Support model falls back to main model", func(t *testing.T) {
		repo := mock_repo.NewMockRepository(t)
		repo.On("SaveSettings", ctx, mock.MatchedBy(func(s *model.Settings) bool {
			return s.MainModel == "llama3" && s.SupportModel == "llama3"
		})).Return(nil).Once()

		err := service.NewSettingsService(repo).Save(ctx, &model.Settings{SystemPrompt: "x", MainModel: " llama3 "})
		assert.NoError(t, err)
	})

	t.Run("Main model is required", func(t *testing.T) {
		repo := mock_repo.NewMockRepository(t)

		err := service.NewSettingsService(repo).Save(ctx, &model.Settings{SystemPrompt: "x"})
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})
}

func TestSettingsService_SupportModel(t *testing.T) {
	ctx := context.Background()
	repo := mock_repo.NewMockRepository(t)
	repo.On("GetSettings", ctx).Return(&model.Settings{MainModel: "llama3"}, nil).Once()

	name, err := service.NewSettingsService(repo).SupportModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "llama3", name)
}
