package targeting

import "testing"

func TestSelectionValidate(t *testing.T) {
	valid := []string{"a", "b", "c"}
	tests := []struct {
		name    string
		targets []string
		min     int
		max     int
		wantErr bool
	}{
		{"exact", []string{"a", "b"}, 2, 2, false},
		{"too few", []string{"a"}, 2, 2, true},
		{"too many", []string{"a", "b", "c"}, 1, 2, true},
		{"unknown", []string{"z"}, 1, 1, true},
		{"duplicate", []string{"a", "a"}, 2, 2, true},
		{"up to zero", nil, 0, 2, false},
	}

	for _, tt := range tests {
		sel := &Selection{Targets: tt.targets, Requirement: Requirement{MinTargets: tt.min, MaxTargets: tt.max, Description: "test"}}
		err := sel.Validate(valid)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: expected error=%v, got %v", tt.name, tt.wantErr, err)
		}
	}
}

func TestValidateSingle(t *testing.T) {
	if err := ValidateSingle("a", []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateSingle("b", []string{"a"}); err == nil {
		t.Fatalf("expected error for unknown target")
	}
}
