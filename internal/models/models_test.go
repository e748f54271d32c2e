package models

import (
	"errors"
	"strings"
	"testing"
)

func TestCandidateProfileValidate(t *testing.T) {
	valid := CandidateProfile{Name: "Алекс", Role: "Backend Developer", GradeTarget: "Junior"}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid profile, got %v", err)
	}

	cases := []struct {
		name    string
		profile CandidateProfile
		want    error
	}{
		{"empty name", CandidateProfile{Name: "  ", Role: "Backend Developer", GradeTarget: "Junior"}, ErrEmptyName},
		{"empty role", CandidateProfile{Name: "Алекс", Role: "", GradeTarget: "Junior"}, ErrEmptyRole},
		{"bad grade", CandidateProfile{Name: "Алекс", Role: "Backend Developer", GradeTarget: "Lead"}, ErrInvalidGrade},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.profile.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestIsValidInputType(t *testing.T) {
	for _, it := range []InputType{InputTypeAnswer, InputTypeCandidateQuestion, InputTypeOffTopic, InputTypeStop, InputTypeGreeting} {
		if !IsValidInputType(it) {
			t.Errorf("%s should be valid", it)
		}
	}
	if IsValidInputType(InputType("SHRUG")) {
		t.Error("unknown input type should be invalid")
	}
}

func TestDirectiveValidate(t *testing.T) {
	d := Directive{NextAction: ActionAsk}
	if err := d.Validate(); err != nil {
		t.Errorf("expected valid directive, got %v", err)
	}
	d.NextAction = NextAction("PANIC")
	if err := d.Validate(); !errors.Is(err, ErrInvalidDirective) {
		t.Errorf("got %v, want ErrInvalidDirective", err)
	}
}

func TestDirectiveAppendThought(t *testing.T) {
	var d Directive
	d.AppendThought("first")
	d.AppendThought("second")
	if d.InternalThoughts != "first\nsecond" {
		t.Errorf("got %q", d.InternalThoughts)
	}
}

func TestSoftSignalsClamp(t *testing.T) {
	s := SoftSignals{Clarity: 1.7, Honesty: -0.2, Engagement: 0.5}
	s.Clamp()
	if s.Clarity != 1 || s.Honesty != 0 || s.Engagement != 0.5 {
		t.Errorf("clamp produced %+v", s)
	}
}

func TestClampDifficulty(t *testing.T) {
	if got := ClampDifficulty(0); got != DifficultyMin {
		t.Errorf("got %d", got)
	}
	if got := ClampDifficulty(9); got != DifficultyMax {
		t.Errorf("got %d", got)
	}
	if got := ClampDifficulty(3); got != 3 {
		t.Errorf("got %d", got)
	}
}

func TestClampScore(t *testing.T) {
	if got := ClampScore(1.4); got != 1 {
		t.Errorf("got %v", got)
	}
	if got := ClampScore(-0.1); got != 0 {
		t.Errorf("got %v", got)
	}
}

func TestDefaultSoftSignalsAreNeutral(t *testing.T) {
	s := DefaultSoftSignals()
	if s.Clarity != 0.5 || s.Honesty != 0.5 || s.Engagement != 0.5 {
		t.Errorf("got %+v", s)
	}
}

func TestErrorMessagesAreActionable(t *testing.T) {
	if !strings.Contains(ErrInvalidGrade.Error(), "Junior") {
		t.Errorf("grade error should name the allowed values: %v", ErrInvalidGrade)
	}
}
