package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"go.uber.org/zap"
)

type UserService struct {
	profileRepo ProfileRepository
	logger      *zap.Logger
}

func NewUserService(profileRepo ProfileRepository, logger *zap.Logger) *UserService {
	return &UserService{
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// ProfileInput данные для создания/обновления профиля
type ProfileInput struct {
	Role           model.Role
	DisplayName    string
	PhotoURL       string
	TelegramChatID *int64
}

// GetProfile получает профиль; ErrProfileNotFound если его нет
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if profile == nil {
		return nil, ErrProfileNotFound
	}

	return profile, nil
}

// UpsertProfile регистрирует или обновляет профиль пользователя
func (s *UserService) UpsertProfile(ctx context.Context, userID string, in ProfileInput) (*model.Profile, error) {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrValidation)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, in.Role)
	}

	profile := &model.Profile{
		ID:             userID,
		Role:           in.Role,
		DisplayName:    name,
		PhotoURL:       strings.TrimSpace(in.PhotoURL),
		TelegramChatID: in.TelegramChatID,
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	s.logger.Info("Profile saved",
		zap.String("user_id", userID),
		zap.String("role", string(profile.Role)),
	)

	return profile, nil
}

// ListTutors список всех репетиторов
func (s *UserService) ListTutors(ctx context.Context) ([]*model.Profile, error) {
	tutors, err := s.profileRepo.ListByRole(ctx, model.RoleTutor)
	if err != nil {
		return nil, fmt.Errorf("list tutors: %w", err)
	}
	return tutors, nil
}
