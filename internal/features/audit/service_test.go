package audit

import (
	"context"
	"testing"

	common_models "go-clinic/internal/common/models"
	"go-clinic/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeRepo struct {
	logs       []common_models.AuditLog
	lastFilter bson.M
}

func (r *fakeRepo) Create(_ context.Context, log common_models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func (r *fakeRepo) List(_ context.Context, filter bson.M, _ common_models.Page) ([]common_models.AuditLog, int64, error) {
	r.lastFilter = filter
	out := append([]common_models.AuditLog(nil), r.logs...)
	return out, int64(len(out)), nil
}

func (r *fakeRepo) EnsureIndexes(context.Context) error { return nil }

type fakeUsers map[string]string

func (f fakeUsers) NamesByIDs(_ context.Context, _ []string) (map[string]string, error) {
	return f, nil
}

func TestLogChangeUsesScope(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewAuditService(repo, fakeUsers{})
	scope := common_models.Scope{TenantID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Role: common_models.RoleStaff}

	require.NoError(t, svc.LogChange(context.Background(), scope, common_models.AuditActionCreate, "doctor", "x", nil))
	require.NoError(t, svc.LogChange(context.Background(), common_models.SystemScope(scope.TenantID), common_models.AuditActionSync, "sync", "y", nil))

	require.Len(t, repo.logs, 2)
	assert.Equal(t, scope.TenantID, repo.logs[0].TenantID)
	assert.Equal(t, scope.UserID.Hex(), repo.logs[0].ActorID)
	assert.Equal(t, "system", repo.logs[1].ActorID)
}

func TestListLogsResolvesNames(t *testing.T) {
	known := primitive.NewObjectID().Hex()
	repo := &fakeRepo{logs: []common_models.AuditLog{
		{ActorID: "system"},
		{ActorID: known},
		{ActorID: primitive.NewObjectID().Hex()},
	}}
	svc := NewAuditService(repo, fakeUsers{known: "Ada"})
	scope := common_models.Scope{TenantID: primitive.NewObjectID(), Role: common_models.RoleAdmin}

	res, err := svc.ListLogs(context.Background(), scope, map[string]string{"module": "doctor", "action": ""}, common_models.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	assert.Equal(t, []string{"System", "Ada", "Unknown User"}, []string{res.Items[0].ActorName, res.Items[1].ActorName, res.Items[2].ActorName})
	assert.Equal(t, bson.M{"tenant_id": scope.TenantID, "module": "doctor"}, repo.lastFilter)
}

func TestRepositoryRegistersIndexes(t *testing.T) {
	var repo AuditRepository = &AuditRepositoryImpl{}
	_, ok := repo.(database.IndexSpec)
	assert.True(t, ok, "audit logs are listed by tenant and time")
}
