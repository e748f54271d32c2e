package topics

import "testing"

func TestForRole_KnownAndFallback(t *testing.T) {
	ts := ForRole("Backend Developer", "Junior")
	if len(ts) == 0 {
		t.Fatal("expected topics for Backend Developer/Junior")
	}
	if ts[0] != "python_basics" {
		t.Errorf("expected python_basics first, got %s", ts[0])
	}

	// Unknown role falls back to Backend Developer.
	fallback := ForRole("Astronaut", "Junior")
	if len(fallback) != len(ts) {
		t.Errorf("expected fallback to Backend Developer topics, got %v", fallback)
	}

	// Unknown grade falls back to Junior.
	fallbackGrade := ForRole("Backend Developer", "Principal")
	if fallbackGrade[0] != "python_basics" {
		t.Errorf("expected Junior fallback, got %v", fallbackGrade)
	}
}

func TestForTopic_ExactAndNearestDifficulty(t *testing.T) {
	qs := ForTopic("python_basics", 3)
	if len(qs) == 0 {
		t.Fatal("expected questions at difficulty 3")
	}

	// security has no difficulty-1 templates; nearest is 3.
	nearest := ForTopic("security", 1)
	if len(nearest) == 0 {
		t.Fatal("expected nearest-difficulty questions for security")
	}
	if nearest[0] != ForTopic("security", 3)[0] {
		t.Errorf("expected difficulty-3 questions as nearest, got %v", nearest)
	}
}

func TestForTopic_UnknownTopicGeneric(t *testing.T) {
	qs := ForTopic("quantum_bogosort", 2)
	if len(qs) != 1 {
		t.Fatalf("expected single generic question, got %v", qs)
	}
}

func TestNextUncovered(t *testing.T) {
	covered := map[string]bool{"python_basics": true}
	next := NextUncovered("Backend Developer", "Junior", covered)
	if next != "python_data_structures" {
		t.Errorf("expected python_data_structures, got %s", next)
	}

	// Everything covered wraps to the first topic.
	all := ForRole("Backend Developer", "Junior")
	allCovered := make(map[string]bool, len(all))
	for _, topic := range all {
		allCovered[topic] = true
	}
	if next := NextUncovered("Backend Developer", "Junior", allCovered); next != all[0] {
		t.Errorf("expected wrap to first topic, got %s", next)
	}
}

func TestDescribe(t *testing.T) {
	if Describe("python_basics") != "Основы Python" {
		t.Errorf("unexpected description: %s", Describe("python_basics"))
	}
	if Describe("some_new_topic") != "some new topic" {
		t.Errorf("unexpected fallback description: %s", Describe("some_new_topic"))
	}
}
