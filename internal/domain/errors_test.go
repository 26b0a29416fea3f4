package domain

import (
	"errors"
	"strings"
	"testing"
)

// TestAnnotate tests that typed errors gain index and region context.
func TestAnnotate(t *testing.T) {
	err := Annotate(Preconditionf("axis order", "input axis order txy is not tyx"), "NINO34", "nino34")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	msg := err.Error()
	for _, part := range []string{"index NINO34", "region nino34", "axis order", "txy"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q missing %q", msg, part)
		}
	}

	plain := Annotate(errors.New("disk on fire"), "SAM", "")
	if errors.Is(plain, ErrPrecondition) || !strings.HasPrefix(plain.Error(), "index SAM: ") {
		t.Errorf("unexpected plain annotation %q", plain)
	}

	if Annotate(nil, "SAM", "") != nil {
		t.Errorf("expected nil")
	}
}

// TestErrorKinds tests that each error kind matches only its own sentinel.
func TestErrorKinds(t *testing.T) {
	cf := CollaboratorFailure("cdo", errors.New("exit status 1"))
	if !errors.Is(cf, ErrCollaborator) || errors.Is(cf, ErrDataQuality) {
		t.Errorf("collaborator failure misclassified: %v", cf)
	}
	dq := DataQualityf("standardize", "series has zero standard deviation")
	if !errors.Is(dq, ErrDataQuality) || errors.Is(dq, ErrPrecondition) {
		t.Errorf("data quality error misclassified: %v", dq)
	}
}
