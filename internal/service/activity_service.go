package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/examly/exam-go-api/internal/models"
	"github.com/examly/exam-go-api/internal/repository"
)

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityRecorder defines behaviour for recording audit entries.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) error
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the audit log recorder.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityRecorder {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return fmt.Errorf("entity type is required")
	}

	model := models.ActivityLog{
		ActorID:    entry.ActorID,
		ActorRole:  strings.ToLower(strings.TrimSpace(entry.ActorRole)),
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   entry.EntityID,
		Metadata:   datatypes.JSONMap(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Warn().Err(err).Str("action", model.Action).Msg("failed to persist activity entry")
		return err
	}

	return nil
}
