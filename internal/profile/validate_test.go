package profile

import "testing"

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"main", false},
		{"work-2", false},
		{"a_b_c", false},
		{"", true},
		{"UPPER", true},
		{"has space", true},
		{"dots.not.allowed", true},
		{"waytoolongwaytoolongwaytoolongwaytoolongwaytoolongwaytoolongwayto", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}
