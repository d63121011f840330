package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id == "" {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

func TestComputeConfigHash_OrderIndependent(t *testing.T) {
	a := ComputeConfigHash(map[string]interface{}{"k": 4, "workers": 8, "max_vif": 2.5})
	b := ComputeConfigHash(map[string]interface{}{"max_vif": 2.5, "k": 4, "workers": 8})
	if a != b {
		t.Fatalf("expected equal hashes, got %s and %s", a, b)
	}

	c := ComputeConfigHash(map[string]interface{}{"k": 5, "workers": 8, "max_vif": 2.5})
	if a == c {
		t.Fatal("expected different hashes for different parameters")
	}
}

func TestFitErrorClassification(t *testing.T) {
	err := NewFitError("a+b", ErrSingularMatrix)
	if !IsFitError(err) {
		t.Fatalf("expected %v to be a fit error", err)
	}
	if IsInputError(err) {
		t.Fatalf("did not expect %v to be an input error", err)
	}
	if !IsNotFoundError(NewColumnNotFoundError("dti")) {
		t.Fatal("expected column lookup failure to be a not-found error")
	}
}
