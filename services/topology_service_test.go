package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleReportOrdering(t *testing.T) {
	invalid := []TopologyError{
		{Type: TopoSelfIntersection, FeatureID: 1, Message: "Feature 1 has invalid geometry (self-intersection)"},
	}
	overlaps := []TopologyError{
		{Type: TopoOverlap, FeatureIDs: []int64{2, 3}, Message: "Features 2 and 3 overlap"},
		{Type: TopoOverlap, FeatureIDs: []int64{2, 4}, Message: "Features 2 and 4 overlap"},
	}
	duplicates := []TopologyError{
		{Type: TopoDuplicate, FeatureIDs: []int64{5, 6}, Message: "Features 5 and 6 have identical geometry"},
	}

	report := assembleReport(10, invalid, overlaps, duplicates)
	assert.Equal(t, int64(10), report.LayerID)
	assert.Equal(t, 4, report.ErrorCount)
	require.Len(t, report.Errors, 4)

	// 固定顺序：invalid -> overlap -> duplicate
	assert.Equal(t, TopoSelfIntersection, report.Errors[0].Type)
	assert.Equal(t, TopoOverlap, report.Errors[1].Type)
	assert.Equal(t, TopoOverlap, report.Errors[2].Type)
	assert.Equal(t, TopoDuplicate, report.Errors[3].Type)
}

func TestAssembleReportEmpty(t *testing.T) {
	report := assembleReport(3, nil, nil, nil)
	assert.Equal(t, 0, report.ErrorCount)
	assert.Empty(t, report.Errors)
}

func TestToLocation(t *testing.T) {
	assert.Nil(t, toLocation(""))
	loc := toLocation(`{"type":"Point","coordinates":[1,2]}`)
	assert.JSONEq(t, `{"type":"Point","coordinates":[1,2]}`, string(loc))
}

func TestValidateLayerMissing(t *testing.T) {
	db := newTestDB(t)
	_, err := NewTopologyService(db).ValidateLayer(404)
	assert.True(t, IsNotFound(err))
}
