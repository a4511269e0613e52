package services

import "testing"

func TestClassifyPreparation(t *testing.T) {
	tests := []struct {
		name      string
		expected  int
		actual    int
		wantDelay int
		wantClass string
	}{
		{"faster than expected", 30, 20, 0, PrepOnTime},
		{"exactly on time", 30, 30, 0, PrepOnTime},
		{"one minute late", 30, 31, 1, PrepDelayed},
		{"very late", 15, 60, 45, PrepDelayed},
		{"zero expected, instant", 0, 0, 0, PrepOnTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, class := ClassifyPreparation(tt.expected, tt.actual)
			if delay != tt.wantDelay || class != tt.wantClass {
				t.Errorf("ClassifyPreparation(%d, %d) = (%d, %s), want (%d, %s)",
					tt.expected, tt.actual, delay, class, tt.wantDelay, tt.wantClass)
			}
		})
	}
}
