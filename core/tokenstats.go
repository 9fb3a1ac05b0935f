// Copyright 2025 Compliance IQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"math"
	"slices"
)

// Default token limits for produced chunks. The soft limit is an
// advisory ceiling for retrieval quality; the hard limit matches the
// embedding model's context window.
const (
	DefaultSoftTokenLimit = 1500
	DefaultHardTokenLimit = 8191
)

// TokenLimits holds the configurable soft and hard token ceilings
// used by chunk-size validation.
type TokenLimits struct {
	Soft int
	Hard int
}

// DefaultTokenLimits returns the standard soft/hard token limits.
func DefaultTokenLimits() TokenLimits {
	return TokenLimits{Soft: DefaultSoftTokenLimit, Hard: DefaultHardTokenLimit}
}

// TokenStats summarizes the distribution of chunk token counts.
//
/// Percentiles use the nearest-rank method: P(q) is the value at index
// ceil(q/100*N)-1 of the sorted counts. This is deliberately fixed
// since soft/hard-limit validation downstream depends on it.
type TokenStats struct {
	Count int
	Min   int
	Max   int
	Avg   float64
	P50   int
	P95   int
	P99   int
}

// ComputeTokenStats calculates min/max/avg and nearest-rank
// percentiles over a collection of chunk token counts.
// Returns ErrNoTokenCounts for an empty input.
func ComputeTokenStats(counts []int) (TokenStats, error) {
	if len(counts) == 0 {
		return TokenStats{}, ErrNoTokenCounts
	}

	sorted := slices.Clone(counts)
	slices.Sort(sorted)

	var sum int
	for _, c := range sorted {
		sum += c
	}

	return TokenStats{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Avg:   float64(sum) / float64(len(sorted)),
		P50:   nearestRank(sorted, 50),
		P95:   nearestRank(sorted, 95),
		P99:   nearestRank(sorted, 99),
	}, nil
}

// nearestRank returns the q-th percentile of sorted counts using the
// nearest-rank method. sorted must be non-empty and ascending.
func nearestRank(sorted []int, q float64) int {
	rank := int(math.Ceil(q / 100.0 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// TokenOutlier identifies a token count that deviates from the mean
// by more than the configured number of standard deviations.
type TokenOutlier struct {
	Index      int
	TokenCount int
	Deviation  float64 // distance from the mean, in standard deviations
}

// TokenOutliers detects counts further than stdDevs population
// standard deviations from the mean. The population formula
// (divide by N, not N-1) is used and deliberately fixed.
// Returns an empty slice when the deviation is zero (all counts equal).
func TokenOutliers(counts []int, stdDevs float64) []TokenOutlier {
	if len(counts) == 0 {
		return nil
	}

	var sum float64
	for _, c := range counts {
		sum += float64(c)
	}
	mean := sum / float64(len(counts))

	var variance float64
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= float64(len(counts))
	stdDev := math.Sqrt(variance)

	if stdDev == 0 {
		return nil
	}

	var outliers []TokenOutlier
	for i, c := range counts {
		deviation := math.Abs(float64(c)-mean) / stdDev
		if deviation > stdDevs {
			outliers = append(outliers, TokenOutlier{
				Index:      i,
				TokenCount: c,
				Deviation:  deviation,
			})
		}
	}
	return outliers
}

// TokenLimitReport counts chunks exceeding the soft and hard limits.
type TokenLimitReport struct {
	TotalChunks int
	OverSoft    int
	OverHard    int
}

// CheckTokenLimits reports how many counts exceed the configured
// soft and hard ceilings. Counts over the hard limit are also over
// the soft limit and appear in both tallies.
func CheckTokenLimits(counts []int, limits TokenLimits) TokenLimitReport {
	report := TokenLimitReport{TotalChunks: len(counts)}
	for _, c := range counts {
		if c > limits.Soft {
			report.OverSoft++
		}
		if c > limits.Hard {
			report.OverHard++
		}
	}
	return report
}
