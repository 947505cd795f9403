package service

import "testing"

func TestIsAllowedTransition(t *testing.T) {
	allowed := map[[2]Stage]bool{
		{StageInitiated, StageProvenanceCheck}:  true,
		{StageProvenanceCheck, StageDriftCheck}: true,
		{StageProvenanceCheck, StageHalt}:       true,
		{StageDriftCheck, StageGreenLight}:      true,
		{StageDriftCheck, StageHalt}:            true,
	}

	for _, from := range AllStages() {
		for _, to := range AllStages() {
			want := allowed[[2]Stage{from, to}]
			if got := isAllowedTransition(from, to); got != want {
				t.Errorf("isAllowedTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStage_IsTerminal(t *testing.T) {
	for _, s := range AllStages() {
		want := s == StageGreenLight || s == StageHalt
		if s.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, s.IsTerminal(), want)
		}
	}
}

func TestStageMachine_Advance(t *testing.T) {
	m := newStageMachine()

	if err := m.advance(StageDriftCheck); err == nil {
		t.Fatal("INITIATED -> DRIFT_CHECK should be rejected")
	}
	if m.current != StageInitiated || len(m.trail) != 1 {
		t.Fatal("rejected transition must not change state")
	}

	for _, next := range []Stage{StageProvenanceCheck, StageDriftCheck, StageGreenLight} {
		if err := m.advance(next); err != nil {
			t.Fatalf("advance(%s) error = %v", next, err)
		}
	}
	if err := m.advance(StageHalt); err == nil {
		t.Error("GREEN_LIGHT -> HALT should be rejected")
	}

	want := []Stage{StageInitiated, StageProvenanceCheck, StageDriftCheck, StageGreenLight}
	if len(m.trail) != len(want) {
		t.Fatalf("trail = %v, want %v", m.trail, want)
	}
	for i := range want {
		if m.trail[i] != want[i] {
			t.Errorf("trail[%d] = %s, want %s", i, m.trail[i], want[i])
		}
	}
}
