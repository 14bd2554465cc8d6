package services

import (
	"testing"

	"github.com/GrainArc/MapStudio/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 两个写入者拿到同一个版本号时，唯一索引拦下后写入并上报Conflict
func TestAppendVersionNumberCollision(t *testing.T) {
	db := newTestDB(t)
	layer := newTestLayer(t, db, "roads")
	feature := newTestFeature(t, db, layer.ID, map[string]interface{}{"name": "main st"})

	first := models.Version{FeatureID: feature.ID, UserID: testActor.UserID, VersionNumber: 1, Properties: []byte(`{}`)}
	require.NoError(t, db.Create(&first).Error)

	dup := models.Version{FeatureID: feature.ID, UserID: testActor.UserID, VersionNumber: 1, Properties: []byte(`{}`)}
	err := appendVersion(db, &dup)
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	// 正常序号不受影响
	next := models.Version{FeatureID: feature.ID, UserID: testActor.UserID, VersionNumber: 2, Properties: []byte(`{}`)}
	require.NoError(t, appendVersion(db, &next))
}

func TestCreateVersionSequence(t *testing.T) {
	db := newTestDB(t)
	layer := newTestLayer(t, db, "roads")
	feature := newTestFeature(t, db, layer.ID, map[string]interface{}{"name": "main st"})

	vs := NewVersioningService(db)
	for want := int64(1); want <= 3; want++ {
		v, err := vs.CreateVersion(testActor, feature.ID, "edit")
		require.NoError(t, err)
		assert.Equal(t, want, v.VersionNumber)
	}

	versions, err := vs.ListVersions(feature.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	// 列表按版本号倒序
	assert.Equal(t, int64(3), versions[0].VersionNumber)
	assert.Equal(t, int64(1), versions[2].VersionNumber)
}

func TestCreateVersionIndependentPerFeature(t *testing.T) {
	db := newTestDB(t)
	layer := newTestLayer(t, db, "parcels")
	a := newTestFeature(t, db, layer.ID, nil)
	b := newTestFeature(t, db, layer.ID, nil)

	vs := NewVersioningService(db)
	_, err := vs.CreateVersion(testActor, a.ID, "first")
	require.NoError(t, err)
	_, err = vs.CreateVersion(testActor, a.ID, "second")
	require.NoError(t, err)

	v, err := vs.CreateVersion(testActor, b.ID, "first")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.VersionNumber)
}

func TestCreateVersionMissingFeature(t *testing.T) {
	db := newTestDB(t)
	_, err := NewVersioningService(db).CreateVersion(testActor, 9999, "x")
	assert.True(t, IsNotFound(err))
}

func TestCreateVersionSnapshotsProperties(t *testing.T) {
	db := newTestDB(t)
	layer := newTestLayer(t, db, "zones")
	feature := newTestFeature(t, db, layer.ID, map[string]interface{}{"zone": "A"})

	vs := NewVersioningService(db)
	v1, err := vs.CreateVersion(testActor, feature.ID, "initial")
	require.NoError(t, err)

	fs := NewFeatureService(db)
	require.NoError(t, fs.UpdateProperties(feature.ID, map[string]interface{}{"zone": "B"}))
	v2, err := vs.CreateVersion(testActor, feature.ID, "renamed")
	require.NoError(t, err)

	assert.JSONEq(t, `{"zone":"A"}`, string(v1.Properties))
	assert.JSONEq(t, `{"zone":"B"}`, string(v2.Properties))
	assert.Equal(t, testActor.UserID, v1.UserID)
}

func TestRestoreVersion(t *testing.T) {
	db := newTestDB(t)
	layer := newTestLayer(t, db, "buildings")
	feature := newTestFeature(t, db, layer.ID, map[string]interface{}{"name": "old hall"})

	vs := NewVersioningService(db)
	_, err := vs.CreateVersion(testActor, feature.ID, "initial")
	require.NoError(t, err)

	fs := NewFeatureService(db)
	require.NoError(t, fs.UpdateProperties(feature.ID, map[string]interface{}{"name": "new hall"}))
	_, err = vs.CreateVersion(testActor, feature.ID, "renamed")
	require.NoError(t, err)

	target, err := vs.GetFeatureAtVersion(feature.ID, 1)
	require.NoError(t, err)

	restored, err := vs.RestoreVersion(testActor, target.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"old hall"}`, string(restored.Properties))

	// 回滚追加两个版本：回滚前快照与回滚结果
	versions, err := vs.ListVersions(feature.ID)
	require.NoError(t, err)
	require.Len(t, versions, 4)
	assert.Equal(t, int64(4), versions[0].VersionNumber)
	assert.Equal(t, "Restored to version 1", versions[0].ChangeDescription)
	assert.Equal(t, "Before restore to version 1", versions[1].ChangeDescription)
	assert.JSONEq(t, `{"name":"new hall"}`, string(versions[1].Properties))
}

func TestRestoreVersionMissing(t *testing.T) {
	db := newTestDB(t)
	_, err := NewVersioningService(db).RestoreVersion(testActor, 12345)
	assert.True(t, IsNotFound(err))
}

func TestGetFeatureAtVersion(t *testing.T) {
	db := newTestDB(t)
	layer := newTestLayer(t, db, "poi")
	feature := newTestFeature(t, db, layer.ID, map[string]interface{}{"k": "v1"})

	vs := NewVersioningService(db)
	_, err := vs.CreateVersion(testActor, feature.ID, "one")
	require.NoError(t, err)

	v, err := vs.GetFeatureAtVersion(feature.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.VersionNumber)

	_, err = vs.GetFeatureAtVersion(feature.ID, 7)
	assert.True(t, IsNotFound(err))
}

func TestSnapshotEqual(t *testing.T) {
	assert.True(t, snapshotEqual([]byte(`{"a":1,"b":2}`), []byte(`{"b":2,"a":1}`)))
	assert.True(t, snapshotEqual(nil, nil))
	assert.False(t, snapshotEqual([]byte(`{"a":1}`), []byte(`{"a":2}`)))
	assert.False(t, snapshotEqual([]byte(`{"a":1}`), nil))
}

func TestDiffProperties(t *testing.T) {
	diff := diffProperties(
		map[string]interface{}{"name": "a", "kept": 1.0, "gone": true},
		map[string]interface{}{"name": "b", "kept": 1.0, "added": "x"},
	)

	require.Contains(t, diff, "name")
	assert.Equal(t, "a", diff["name"].Old)
	assert.Equal(t, "b", diff["name"].New)

	require.Contains(t, diff, "gone")
	assert.Nil(t, diff["gone"].New)
	require.Contains(t, diff, "added")
	assert.Nil(t, diff["added"].Old)

	assert.NotContains(t, diff, "kept")
}

func TestDiffPropertiesSelfEmpty(t *testing.T) {
	props := map[string]interface{}{"a": 1.0, "b": "x"}
	assert.Empty(t, diffProperties(props, props))
}

func TestCompareVersions(t *testing.T) {
	db := newTestDB(t)
	layer := newTestLayer(t, db, "compare")
	feature := newTestFeature(t, db, layer.ID, map[string]interface{}{"status": "draft"})

	vs := NewVersioningService(db)
	v1, err := vs.CreateVersion(testActor, feature.ID, "draft")
	require.NoError(t, err)

	fs := NewFeatureService(db)
	require.NoError(t, fs.UpdateProperties(feature.ID, map[string]interface{}{"status": "final"}))
	v2, err := vs.CreateVersion(testActor, feature.ID, "final")
	require.NoError(t, err)

	cmp, err := vs.CompareVersions(v1.ID, v2.ID)
	require.NoError(t, err)
	assert.False(t, cmp.GeometryChanged)
	assert.True(t, cmp.PropertiesChanged)
	require.Contains(t, cmp.PropertiesDiff, "status")
	assert.Equal(t, "draft", cmp.PropertiesDiff["status"].Old)
	assert.Equal(t, "final", cmp.PropertiesDiff["status"].New)
}
