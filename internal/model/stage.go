package model

import (
	"github.com/rotisserie/eris"
)

// Stage is a point in the workflow's prerequisite ordering.
type Stage int

const (
	StageIdle Stage = iota
	StageIngested
	StageAggregated
	StageVisualized
	StageRiskIdentified
	StagePredicted
)

// Stages lists every stage in enum order.
var Stages = []Stage{
	StageIdle,
	StageIngested,
	StageAggregated,
	StageVisualized,
	StageRiskIdentified,
	StagePredicted,
}

var stageNames = map[Stage]string{
	StageIdle:           "idle",
	StageIngested:       "ingested",
	StageAggregated:     "aggregated",
	StageVisualized:     "visualized",
	StageRiskIdentified: "risk_identified",
	StagePredicted:      "predicted",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Prerequisite returns the stage that must be reached before s. The second
// return value is false for StageIdle, which has no prerequisite.
func (s Stage) Prerequisite() (Stage, bool) {
	switch s {
	case StageIngested:
		return StageIdle, true
	case StageAggregated:
		return StageIngested, true
	case StageVisualized, StageRiskIdentified, StagePredicted:
		return StageAggregated, true
	default:
		return StageIdle, false
	}
}

// IsLeaf reports whether s is one of the parallel stages reachable only from
// StageAggregated.
func (s Stage) IsLeaf() bool {
	return s == StageVisualized || s == StageRiskIdentified || s == StagePredicted
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// DependsOn reports whether other lies on the prerequisite chain of s.
func (s Stage) DependsOn(other Stage) bool {
	cur := s
	for {
		prev, ok := cur.Prerequisite()
		if !ok {
			return false
		}
		if prev == other {
			return true
		}
		cur = prev
	}
}

// MarshalText renders the stage name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage converts a stage name back into a Stage.
func ParseStage(name string) (Stage, error) {
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return StageIdle, eris.Errorf("model: unknown stage %q", name)
}
