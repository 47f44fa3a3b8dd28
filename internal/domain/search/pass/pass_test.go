package pass

import "testing"

func TestQuality_Escalates(t *testing.T) {
	tests := []struct {
		q    Quality
		want bool
	}{
		{Good, false},
		{Mediocre, true},
		{Empty, true},
		{Unrated, false},
	}
	for _, tt := range tests {
		if got := tt.q.Escalates(); got != tt.want {
			t.Errorf("%q.Escalates() = %v, want %v", tt.q, got, tt.want)
		}
	}
}
