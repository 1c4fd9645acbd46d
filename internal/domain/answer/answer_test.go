package answer

import "testing"

func TestClassify_Boundaries(t *testing.T) {
	c := DefaultCutoffs()
	tests := []struct {
		score float64
		want  Confidence
	}{
		{0.80, High},
		{0.55, High},
		{0.549, Medium},
		{0.42, Medium},
		{0.419, Low},
		{0.35, Low},
		{0.349, NotFound},
		{0, NotFound},
	}
	for _, tc := range tests {
		if got := c.Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestClassify_Monotone(t *testing.T) {
	rank := map[Confidence]int{NotFound: 0, Low: 1, Medium: 2, High: 3}
	c := DefaultCutoffs()
	prev := rank[c.Classify(0)]
	for i := 1; i <= 1000; i++ {
		cur := rank[c.Classify(float64(i) / 1000)]
		if cur < prev {
			t.Fatalf("tier decreased at score %v", float64(i)/1000)
		}
		prev = cur
	}
}

func TestCutoffs_Validate(t *testing.T) {
	if err := DefaultCutoffs().Validate(0.35); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if err := (Cutoffs{Low: 0.5, Medium: 0.4, High: 0.6}).Validate(0.3); err == nil {
		t.Error("expected error for non-ascending cutoffs")
	}
	if err := DefaultCutoffs().Validate(0.4); err == nil {
		t.Error("expected error when threshold exceeds low cutoff")
	}
}

func TestNotFoundAnswer(t *testing.T) {
	a := NotFoundAnswer()
	if a.Answer != NotFoundMessage {
		t.Errorf("answer = %q", a.Answer)
	}
	if a.Sources == nil || len(a.Sources) != 0 {
		t.Errorf("sources must be an empty non-nil slice, got %#v", a.Sources)
	}
	if a.Confidence != NotFound {
		t.Errorf("confidence = %q", a.Confidence)
	}
}

func TestRoundScore(t *testing.T) {
	if got := RoundScore(0.123456); got != 0.1235 {
		t.Errorf("got %v", got)
	}
}
