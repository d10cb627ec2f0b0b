package pipeline

import (
	"time"
)

// Stage names, in execution order
const (
	StageLoad      = "load"
	StageDerive    = "derive"
	StageFit       = "fit"
	StageAggregate = "aggregate"
	StageRender    = "render"
	StageSave      = "save"
)

// Stages lists every stage in execution order
var Stages = []string{StageLoad, StageDerive, StageFit, StageAggregate, StageRender, StageSave}

// StageStatus represents the outcome of a stage
type StageStatus string

const (
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// StageState records one executed stage
type StageState struct {
	Name      string
	Status    StageStatus
	StartTime time.Time
	EndTime   time.Time
	Detail    string
	Error     error
}

func newStageState(name string) StageState {
	return StageState{
		Name:      name,
		Status:    StageStatusActive,
		StartTime: time.Now(),
	}
}

// complete marks the stage as completed
func (s *StageState) complete(detail string) {
	s.EndTime = time.Now()
	s.Status = StageStatusCompleted
	s.Detail = detail
}

// fail marks the stage as failed with the given error
func (s *StageState) fail(err error) {
	s.EndTime = time.Now()
	s.Status = StageStatusFailed
	s.Error = err
}

// Duration returns how long the stage ran
func (s StageState) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}
