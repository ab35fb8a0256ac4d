package audit

import (
	"context"
	"time"

	common_models "go-clinic/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserFinder resolves actor ids to display names.
type UserFinder interface {
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

type AuditService interface {
	LogChange(ctx context.Context, scope common_models.Scope, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error
	ListLogs(ctx context.Context, scope common_models.Scope, filters map[string]string, page common_models.Page) (*common_models.PageResult[common_models.AuditLog], error)
}

type AuditServiceImpl struct {
	Repo     AuditRepository
	UserRepo UserFinder
}

func NewAuditService(repo AuditRepository, userRepo UserFinder) AuditService {
	return &AuditServiceImpl{
		Repo:     repo,
		UserRepo: userRepo,
	}
}

func (s *AuditServiceImpl) LogChange(ctx context.Context, scope common_models.Scope, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	actorID := "system"
	if !scope.UserID.IsZero() {
		actorID = scope.UserID.Hex()
	}

	log := common_models.AuditLog{
		ID:        primitive.NewObjectID(),
		TenantID:  scope.TenantID,
		Action:    action,
		Module:    module,
		RecordID:  recordID,
		ActorID:   actorID,
		Changes:   changes,
		Timestamp: time.Now(),
	}

	return s.Repo.Create(ctx, log)
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, scope common_models.Scope, filters map[string]string, page common_models.Page) (*common_models.PageResult[common_models.AuditLog], error) {
	query := scope.Filter()
	for k, v := range filters {
		if v != "" {
			query[k] = v
		}
	}

	logs, total, err := s.Repo.List(ctx, bson.M(query), page)
	if err != nil {
		return nil, err
	}

	actorIDs := make([]string, 0)
	seen := make(map[string]bool)
	for _, log := range logs {
		if log.ActorID != "system" && log.ActorID != "" && !seen[log.ActorID] {
			seen[log.ActorID] = true
			actorIDs = append(actorIDs, log.ActorID)
		}
	}

	names := map[string]string{}
	if len(actorIDs) > 0 && s.UserRepo != nil {
		if found, err := s.UserRepo.NamesByIDs(ctx, actorIDs); err == nil {
			names = found
		}
	}

	for i, log := range logs {
		switch {
		case log.ActorID == "system" || log.ActorID == "":
			logs[i].ActorName = "System"
		case names[log.ActorID] != "":
			logs[i].ActorName = names[log.ActorID]
		default:
			logs[i].ActorName = "Unknown User"
		}
	}

	return &common_models.PageResult[common_models.AuditLog]{Items: logs, Total: total, Page: page.Page, Limit: page.Limit}, nil
}
