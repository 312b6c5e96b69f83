/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package scorer ranks pending requests against a parsed payment signal.
package scorer

import (
	"sort"

	"github.com/paymatch/paymatch/model"
)

const (
	ScoreExact     = 100
	ScoreTolerance = 80

	// DefaultTolerance is the absolute amount difference, in minor units,
	// still accepted as a match.
	DefaultTolerance int64 = 100
)

// Options tunes the scorer.
type Options struct {
	Tolerance int64
}

// DefaultOptions returns the baseline scoring options.
func DefaultOptions() Options {
	return Options{Tolerance: DefaultTolerance}
}

// Score computes a candidate for every request the signal matches and returns
// them ordered by descending score, then oldest request first. Requests that
// score zero are left out. The caller decides which requests are eligible.
func Score(signal model.ParsedSignal, requests []model.PendingRequest, opts Options) []model.MatchCandidate {
	candidates := make([]model.MatchCandidate, 0)
	if !signal.HasAmount() {
		return candidates
	}

	for _, request := range requests {
		score, rule := scoreAmount(*signal.Amount, request.Amount, opts.Tolerance)
		if score == 0 {
			continue
		}
		candidates = append(candidates, model.MatchCandidate{Request: request, Score: score, Rule: rule})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Request.CreatedAt.Equal(b.Request.CreatedAt) {
			return a.Request.CreatedAt.Before(b.Request.CreatedAt)
		}
		return a.Request.RequestID < b.Request.RequestID
	})

	return candidates
}

func scoreAmount(signalAmount, requestAmount, tolerance int64) (int, model.ScoringRule) {
	diff := signalAmount - requestAmount
	if diff < 0 {
		diff = -diff
	}

	switch {
	case diff == 0:
		return ScoreExact, model.RuleExactAmount
	case diff <= tolerance:
		return ScoreTolerance, model.RuleAmountTolerance
	default:
		return 0, ""
	}
}
