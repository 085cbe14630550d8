package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_Prerequisite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stage  Stage
		want   Stage
		hasPre bool
	}{
		{StageIdle, StageIdle, false},
		{StageIngested, StageIdle, true},
		{StageAggregated, StageIngested, true},
		{StageVisualized, StageAggregated, true},
		{StageRiskIdentified, StageAggregated, true},
		{StagePredicted, StageAggregated, true},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			t.Parallel()
			got, ok := tt.stage.Prerequisite()
			assert.Equal(t, tt.hasPre, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStage_DependsOn(t *testing.T) {
	t.Parallel()

	assert.True(t, StagePredicted.DependsOn(StageIngested))
	assert.True(t, StageVisualized.DependsOn(StageAggregated))
	assert.False(t, StageVisualized.DependsOn(StageRiskIdentified))
	assert.False(t, StageIngested.DependsOn(StageAggregated))
	assert.False(t, StageIdle.DependsOn(StageIdle))
}

func TestStage_IsLeaf(t *testing.T) {
	t.Parallel()

	assert.True(t, StageVisualized.IsLeaf())
	assert.True(t, StageRiskIdentified.IsLeaf())
	assert.True(t, StagePredicted.IsLeaf())
	assert.False(t, StageAggregated.IsLeaf())
}

func TestParseStage_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range Stages {
		got, err := ParseStage(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStage("trained")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Stage(42).String())
}

func TestStage_TextRoundTrip(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(map[string]Stage{"stage": StageRiskIdentified})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"risk_identified"}`, string(b))

	var got struct {
		Stage Stage `json:"stage"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"stage":"predicted"}`), &got))
	assert.Equal(t, StagePredicted, got.Stage)

	assert.Error(t, json.Unmarshal([]byte(`{"stage":"done"}`), &got))
}
