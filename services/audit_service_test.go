package services

import (
	"testing"
	"time"

	"github.com/GrainArc/MapStudio/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogAndGet(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db)

	err := audit.LogFeatureCreate(testActor, 7, map[string]interface{}{"layer_id": 1})
	require.NoError(t, err)

	page, err := audit.List(AuditFilter{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	entry := page.Data[0]
	assert.Equal(t, models.ActionCreate, entry.Action)
	assert.Equal(t, "feature", entry.EntityType)
	assert.Equal(t, int64(7), entry.EntityID)
	assert.Equal(t, testActor.UserID, entry.UserID)
	assert.Equal(t, testActor.IPAddress, entry.IPAddress)
	assert.Equal(t, testActor.UserAgent, entry.UserAgent)
	assert.NotEmpty(t, entry.NewValues)
	assert.Empty(t, entry.OldValues)

	got, err := audit.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)

	_, err = audit.Get(9999)
	assert.True(t, IsNotFound(err))
}

func TestAuditListFilters(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db)

	other := Actor{UserID: 99}
	require.NoError(t, audit.LogFeatureCreate(testActor, 1, nil))
	require.NoError(t, audit.LogFeatureUpdate(testActor, 1, nil, nil))
	require.NoError(t, audit.LogFeatureDelete(other, 2, nil))
	require.NoError(t, audit.LogImport(other, "shapefile", 5, 10))

	page, err := audit.List(AuditFilter{Action: models.ActionCreate})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = audit.List(AuditFilter{UserID: other.UserID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = audit.List(AuditFilter{EntityType: "feature", EntityID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestAuditListPagination(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db)
	for i := 0; i < 5; i++ {
		require.NoError(t, audit.LogFeatureCreate(testActor, int64(i), nil))
	}

	page, err := audit.List(AuditFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Page)
}

func TestAuditForEntity(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db)
	require.NoError(t, audit.LogFeatureCreate(testActor, 3, nil))
	require.NoError(t, audit.LogFeatureUpdate(testActor, 3, nil, nil))
	require.NoError(t, audit.LogFeatureUpdate(testActor, 4, nil, nil))

	page, err := audit.ForEntity("feature", 3, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestResolveAuditWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	from, to := resolveAuditWindow(nil, nil, now)
	require.NotNil(t, from)
	assert.Nil(t, to)
	assert.Equal(t, now.AddDate(0, 0, -30), *from)

	// 显式时间范围原样保留
	explicit := now.AddDate(0, 0, -90)
	from, to = resolveAuditWindow(&explicit, nil, now)
	require.NotNil(t, from)
	assert.Equal(t, explicit, *from)
	assert.Nil(t, to)

	upper := now.AddDate(0, 0, -1)
	from, to = resolveAuditWindow(nil, &upper, now)
	assert.Nil(t, from)
	require.NotNil(t, to)
	assert.Equal(t, upper, *to)
}

func TestAuditSummary(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db)
	require.NoError(t, audit.LogFeatureCreate(testActor, 1, nil))
	require.NoError(t, audit.LogFeatureUpdate(testActor, 1, nil, nil))
	require.NoError(t, audit.LogFeatureDelete(testActor, 1, nil))
	require.NoError(t, audit.Log(testActor, models.ActionUpdate, "layer", 2, nil, nil))

	summary, err := audit.Summary()
	require.NoError(t, err)

	assert.Equal(t, int64(4), summary.Today.Total)
	assert.Equal(t, int64(1), summary.Today.Creates)
	assert.Equal(t, int64(2), summary.Today.Updates)
	assert.Equal(t, int64(1), summary.Today.Deletes)
	assert.Equal(t, summary.Today.Total, summary.Week.Total)
	assert.Equal(t, summary.Today.Total, summary.Month.Total)

	require.NotEmpty(t, summary.ByEntity)
	assert.Equal(t, "feature", summary.ByEntity[0].EntityType)
	assert.Equal(t, int64(3), summary.ByEntity[0].Count)
}
