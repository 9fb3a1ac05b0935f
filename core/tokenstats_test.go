package core

import (
	"errors"
	"testing"
)

func TestComputeTokenStats(t *testing.T) {
	tests := []struct {
		name    string
		counts  []int
		want    TokenStats
		wantErr error
	}{
		{
			name:    "empty input",
			counts:  nil,
			wantErr: ErrNoTokenCounts,
		},
		{
			name:   "single count",
			counts: []int{500},
			want:   TokenStats{Count: 1, Min: 500, Max: 500, Avg: 500, P50: 500, P95: 500, P99: 500},
		},
		{
			name:   "unsorted input",
			counts: []int{300, 100, 200},
			want:   TokenStats{Count: 3, Min: 100, Max: 300, Avg: 200, P50: 200, P95: 300, P99: 300},
		},
		{
			name: "ten counts nearest rank",
			// p50 = value at rank ceil(0.50*10)=5, p95 at rank ceil(9.5)=10, p99 at rank 10
			counts: []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			want:   TokenStats{Count: 10, Min: 10, Max: 100, Avg: 55, P50: 50, P95: 100, P99: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeTokenStats(tt.counts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("stats = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTokenOutliers(t *testing.T) {
	t.Run("uniform counts have no outliers", func(t *testing.T) {
		outliers := TokenOutliers([]int{100, 100, 100}, 2.0)
		if len(outliers) != 0 {
			t.Errorf("outliers = %v, want none", outliers)
		}
	})

	t.Run("single extreme count flagged", func(t *testing.T) {
		counts := []int{100, 100, 100, 100, 100, 100, 100, 100, 100, 5000}
		outliers := TokenOutliers(counts, 2.0)
		if len(outliers) != 1 {
			t.Fatalf("outliers = %v, want exactly 1", outliers)
		}
		if outliers[0].Index != 9 || outliers[0].TokenCount != 5000 {
			t.Errorf("outlier = %+v", outliers[0])
		}
		if outliers[0].Deviation <= 2.0 {
			t.Errorf("deviation = %f, want > 2", outliers[0].Deviation)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := TokenOutliers(nil, 2.0); got != nil {
			t.Errorf("outliers = %v, want nil", got)
		}
	})
}

func TestCheckTokenLimits(t *testing.T) {
	limits := DefaultTokenLimits()
	counts := []int{400, 1500, 1501, 8191, 8192, 9000}

	report := CheckTokenLimits(counts, limits)
	if report.TotalChunks != 6 {
		t.Errorf("TotalChunks = %d, want 6", report.TotalChunks)
	}
	// 1501, 8191, 8192, 9000 exceed the soft limit of 1500.
	if report.OverSoft != 4 {
		t.Errorf("OverSoft = %d, want 4", report.OverSoft)
	}
	// 8192 and 9000 exceed the hard limit of 8191.
	if report.OverHard != 2 {
		t.Errorf("OverHard = %d, want 2", report.OverHard)
	}
}

func TestCheckTokenLimits_CustomLimits(t *testing.T) {
	report := CheckTokenLimits([]int{5, 15, 25}, TokenLimits{Soft: 10, Hard: 20})
	if report.OverSoft != 2 || report.OverHard != 1 {
		t.Errorf("report = %+v, want OverSoft 2, OverHard 1", report)
	}
}
