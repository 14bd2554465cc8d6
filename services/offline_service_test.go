package services

import (
	"testing"
	"time"

	"github.com/GrainArc/MapStudio/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampExpireDays(t *testing.T) {
	cases := map[int]int{
		-3: 1,
		0:  1,
		1:  1,
		7:  7,
		30: 30,
		45: 30,
	}
	for in, want := range cases {
		assert.Equal(t, want, clampExpireDays(in), "days=%d", in)
	}
}

func TestOfflineShowExpired(t *testing.T) {
	db := newTestDB(t)
	sync := models.OfflineSync{
		UserID:    1,
		LayerID:   2,
		SyncType:  models.SyncTypeFull,
		SyncedAt:  time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&sync).Error)

	_, err := NewOfflineService(db).Show(1, 2)
	assert.True(t, IsExpired(err))
}

func TestOfflineShowAndIndex(t *testing.T) {
	db := newTestDB(t)
	fresh := models.OfflineSync{
		UserID: 1, LayerID: 2, SyncType: models.SyncTypeFull,
		SyncedAt: time.Now(), ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	stale := models.OfflineSync{
		UserID: 1, LayerID: 3, SyncType: models.SyncTypeFull,
		SyncedAt: time.Now().Add(-72 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Create(&stale).Error)

	svc := NewOfflineService(db)
	got, err := svc.Show(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.LayerID)

	// 过期记录不出现在列表里
	syncs, err := svc.Index(1)
	require.NoError(t, err)
	require.Len(t, syncs, 1)
	assert.Equal(t, int64(2), syncs[0].LayerID)
}

func TestOfflineShowMissing(t *testing.T) {
	db := newTestDB(t)
	_, err := NewOfflineService(db).Show(1, 999)
	assert.True(t, IsNotFound(err))
}

func TestOfflineDelete(t *testing.T) {
	db := newTestDB(t)
	sync := models.OfflineSync{
		UserID: 5, LayerID: 6, SyncType: models.SyncTypeFull,
		SyncedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(&sync).Error)

	svc := NewOfflineService(db)
	require.NoError(t, svc.Delete(5, 6))
	assert.True(t, IsNotFound(svc.Delete(5, 6)))
}

func TestSyncChangesCreateUpdateDelete(t *testing.T) {
	db := newTestDB(t)
	layer := newTestLayer(t, db, "field notes")
	existing := newTestFeature(t, db, layer.ID, map[string]interface{}{"note": "before"})

	svc := NewOfflineService(db)
	results := svc.SyncChanges(testActor, []OfflineChange{
		{
			Action:    ChangeCreate,
			LayerID:   layer.ID,
			OfflineID: "tmp-1",
			Data:      OfflineChangeData{Properties: map[string]interface{}{"note": "new"}},
		},
		{
			Action:    ChangeUpdate,
			FeatureID: existing.ID,
			Data:      OfflineChangeData{Properties: map[string]interface{}{"note": "after"}},
		},
		{
			Action:    ChangeDelete,
			FeatureID: existing.ID,
		},
	})

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, "ok", r.Status, "result %d: %s", i, r.Error)
	}
	assert.Equal(t, "tmp-1", results[0].OfflineID)
	assert.NotZero(t, results[0].FeatureID)

	// 删除后要素转历史态
	fs := NewFeatureService(db)
	_, err := fs.GetActive(existing.ID)
	assert.True(t, IsNotFound(err))
	feature, err := fs.Get(existing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHistory, feature.Status)
}

func TestSyncChangesIsolation(t *testing.T) {
	db := newTestDB(t)
	layer := newTestLayer(t, db, "mixed batch")

	// 第二条失败不影响第一条与第三条
	results := NewOfflineService(db).SyncChanges(testActor, []OfflineChange{
		{Action: ChangeCreate, LayerID: layer.ID, Data: OfflineChangeData{Properties: map[string]interface{}{"a": 1}}},
		{Action: ChangeUpdate, FeatureID: 99999},
		{Action: "rename"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "ok", results[0].Status)
	assert.Equal(t, "error", results[1].Status)
	assert.Equal(t, "error", results[2].Status)

	var count int64
	db.Model(&models.Feature{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
