package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/churn-cli/internal/model"
)

func TestNew_StartsIdle(t *testing.T) {
	t.Parallel()

	p := New()
	assert.Equal(t, model.StageIdle, p.Current())
	assert.True(t, p.CanInvoke(model.StageIdle))
	assert.False(t, p.CanInvoke(model.StageIngested))
	assert.Empty(t, p.Reached())
}

func TestAdvance_RejectsSkippedStages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		to      model.Stage
		missing model.Stage
	}{
		{model.StageAggregated, model.StageIngested},
		{model.StageVisualized, model.StageAggregated},
		{model.StageRiskIdentified, model.StageAggregated},
		{model.StagePredicted, model.StageAggregated},
	}
	for _, tt := range tests {
		t.Run(tt.to.String(), func(t *testing.T) {
			t.Parallel()

			p := New()
			err := p.Advance(tt.to)
			require.Error(t, err)

			var soe *StageOrderError
			require.True(t, errors.As(err, &soe))
			assert.Equal(t, tt.missing, soe.Missing)
			assert.Equal(t, tt.to, soe.To)
			assert.Equal(t, model.StageIdle, p.Current(), "failed advance must not move the pipeline")
		})
	}
}

func TestAdvance_LeavesAreParallel(t *testing.T) {
	t.Parallel()

	p := New()
	require.NoError(t, p.Advance(model.StageIngested))
	require.NoError(t, p.Advance(model.StageAggregated))

	require.NoError(t, p.Advance(model.StagePredicted))
	require.NoError(t, p.Advance(model.StageVisualized))
	require.NoError(t, p.Advance(model.StageRiskIdentified))

	assert.Equal(t, model.StageRiskIdentified, p.Current())
	assert.True(t, p.CanInvoke(model.StageAggregated))
	assert.Equal(t, []model.Stage{
		model.StageIngested,
		model.StageAggregated,
		model.StageVisualized,
		model.StageRiskIdentified,
		model.StagePredicted,
	}, p.Reached())
}

func TestAdvance_RerunDoesNotRegress(t *testing.T) {
	t.Parallel()

	p := New()
	require.NoError(t, p.Advance(model.StageIngested))
	require.NoError(t, p.Advance(model.StageAggregated))
	require.NoError(t, p.Advance(model.StagePredicted))

	require.NoError(t, p.Advance(model.StageAggregated))
	assert.True(t, p.CanInvoke(model.StagePredicted))
	assert.True(t, p.CanInvoke(model.StageAggregated))
}

func TestAdvance_IdleAndUnknown(t *testing.T) {
	t.Parallel()

	p := New()
	assert.NoError(t, p.Advance(model.StageIdle))
	assert.Error(t, p.Advance(model.Stage(99)))
}

func TestRequire(t *testing.T) {
	t.Parallel()

	p := New()
	assert.NoError(t, p.Require(model.StageIngested))
	assert.Error(t, p.Require(model.StageAggregated))

	require.NoError(t, p.Advance(model.StageIngested))
	assert.NoError(t, p.Require(model.StageAggregated))
	assert.Error(t, p.Require(model.StageVisualized))
}

func TestInvalidate_ClearsDownstream(t *testing.T) {
	t.Parallel()

	p := New()
	require.NoError(t, p.Advance(model.StageIngested))
	require.NoError(t, p.Advance(model.StageAggregated))
	require.NoError(t, p.Advance(model.StageVisualized))

	p.Invalidate(model.StageIngested)

	assert.True(t, p.CanInvoke(model.StageIngested))
	assert.False(t, p.CanInvoke(model.StageAggregated))
	assert.False(t, p.CanInvoke(model.StageVisualized))
	assert.Equal(t, model.StageIngested, p.Current())
}

func TestInvalidate_KeepsCurrentWhenUnaffected(t *testing.T) {
	t.Parallel()

	p := New()
	require.NoError(t, p.Advance(model.StageIngested))
	require.NoError(t, p.Advance(model.StageAggregated))
	require.NoError(t, p.Advance(model.StagePredicted))
	require.NoError(t, p.Advance(model.StageIngested))

	p.Invalidate(model.StageIngested)
	assert.Equal(t, model.StageIngested, p.Current())
	assert.Equal(t, []model.Stage{model.StageIngested}, p.Reached())
}

func TestRestore(t *testing.T) {
	t.Parallel()

	p, err := Restore([]model.Stage{model.StagePredicted, model.StageIngested, model.StageAggregated})
	require.NoError(t, err)
	assert.Equal(t, model.StagePredicted, p.Current())
	assert.True(t, p.CanInvoke(model.StagePredicted))

	_, err = Restore([]model.Stage{model.StageIngested, model.StageVisualized})
	var soe *StageOrderError
	require.ErrorAs(t, err, &soe)
	assert.Equal(t, model.StageAggregated, soe.Missing)
}

func TestStageOrderError_Message(t *testing.T) {
	t.Parallel()

	err := &StageOrderError{From: model.StageIngested, To: model.StageVisualized, Missing: model.StageAggregated}
	assert.Equal(t, "pipeline: cannot reach visualized from ingested: aggregated has not completed", err.Error())
}
