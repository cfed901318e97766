package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelCatalog_Initial(t *testing.T) {
	tests := []struct {
		name    string
		catalog ModelCatalog
		want    string
		wantOK  bool
	}{
		{"default wins", ModelCatalog{Models: []string{"a", "b"}, DefaultModel: "b"}, "b", true},
		{"first entry", ModelCatalog{Models: []string{"a", "b"}}, "a", true},
		{"empty", ModelCatalog{}, "", false},
		{"failed", FailedModelCatalog(SentinelConnectionError), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.catalog.Initial()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestCatalog_SentinelsAreNotSelectable(t *testing.T) {
	mc := FailedModelCatalog(SentinelModelsInvalid)
	assert.Equal(t, []string{SentinelModelsInvalid}, mc.Models)
	assert.False(t, mc.Contains(SentinelModelsInvalid))
	assert.True(t, IsSentinel(SentinelModelsInvalid))

	cc := FailedCollectionCatalog()
	assert.False(t, cc.Contains(SentinelCollectionsUnavailable))
	assert.False(t, IsSentinel("docs"))
}

func TestComparisonRequest_JudgeIsCandidate(t *testing.T) {
	req := ComparisonRequest{CandidateModels: []string{"a", "b"}, JudgeModel: "b"}
	assert.True(t, req.JudgeIsCandidate())
	req.JudgeModel = "c"
	assert.False(t, req.JudgeIsCandidate())
}

func TestComparisonResult_Panels(t *testing.T) {
	res := &ComparisonResult{
		Models:   []string{"b", "a"},
		PerModel: map[string]string{"a": "A", "b": "B"},
		PerModelMetrics: map[string]MetricSet{
			"a": {Present: true, Error: "judge failed"},
			"b": {Present: true, Entries: []MetricEntry{{Key: "ragas_x", Origin: OriginRagas}}},
		},
	}
	panels := res.Panels()
	assert.Equal(t, "b", panels[0].Model)
	assert.Equal(t, "B", panels[0].Answer)
	assert.True(t, panels[0].HasMetrics())
	assert.False(t, panels[1].HasMetrics(), "error payload suppresses metrics")
	assert.True(t, res.HasRagas())

	var nilRes *ComparisonResult
	assert.Nil(t, nilRes.Panels())
	assert.False(t, nilRes.HasRagas())
}
