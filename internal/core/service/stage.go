package service

import "fmt"

// Stage is a state of the load sequence.
type Stage string

const (
	StageInitiated       Stage = "INITIATED"
	StageProvenanceCheck Stage = "PROVENANCE_CHECK"
	StageDriftCheck      Stage = "DRIFT_CHECK"
	StageGreenLight      Stage = "GREEN_LIGHT"
	StageHalt            Stage = "HALT"
)

// AllStages returns every stage in pipeline order, HALT last.
func AllStages() []Stage {
	return []Stage{StageInitiated, StageProvenanceCheck, StageDriftCheck, StageGreenLight, StageHalt}
}

// IsTerminal reports whether no further transition leaves s.
func (s Stage) IsTerminal() bool {
	return s == StageGreenLight || s == StageHalt
}

func (s Stage) String() string {
	return string(s)
}

func isAllowedTransition(from, to Stage) bool {
	switch from {
	case StageInitiated:
		return to == StageProvenanceCheck
	case StageProvenanceCheck:
		return to == StageDriftCheck || to == StageHalt
	case StageDriftCheck:
		return to == StageGreenLight || to == StageHalt
	default:
		return false
	}
}

// stageMachine tracks one load sequence. It is not shared between
// goroutines.
type stageMachine struct {
	current Stage
	trail   []Stage
}

func newStageMachine() *stageMachine {
	return &stageMachine{
		current: StageInitiated,
		trail:   []Stage{StageInitiated},
	}
}

// advance moves to next, or fails without changing state.
func (m *stageMachine) advance(next Stage) error {
	if !isAllowedTransition(m.current, next) {
		return fmt.Errorf("disallowed stage transition: %s -> %s", m.current, next)
	}
	m.current = next
	m.trail = append(m.trail, next)
	return nil
}
