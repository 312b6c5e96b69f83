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

package scorer

import (
	"testing"
	"time"

	"github.com/paymatch/paymatch/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

func pending(id string, amount int64, createdAt time.Time) model.PendingRequest {
	return model.PendingRequest{
		RequestID:  id,
		MerchantID: "merchant_1",
		Amount:     amount,
		Status:     model.RequestAwaiting,
		CreatedAt:  createdAt,
	}
}

func TestScore_ExactMatch(t *testing.T) {
	now := time.Now()
	signal := model.ParsedSignal{Amount: ptr.Int64(50000), UTR: ptr.String("ABC123XYZ")}

	candidates := Score(signal, []model.PendingRequest{pending("req_1", 50000, now)}, DefaultOptions())

	require.Len(t, candidates, 1)
	assert.Equal(t, "req_1", candidates[0].Request.RequestID)
	assert.Equal(t, ScoreExact, candidates[0].Score)
	assert.Equal(t, model.RuleExactAmount, candidates[0].Rule)
}

func TestScore_WithinTolerance(t *testing.T) {
	signal := model.ParsedSignal{Amount: ptr.Int64(49950)}

	candidates := Score(signal, []model.PendingRequest{pending("req_1", 50000, time.Now())}, DefaultOptions())

	require.Len(t, candidates, 1)
	assert.Equal(t, ScoreTolerance, candidates[0].Score)
	assert.Equal(t, model.RuleAmountTolerance, candidates[0].Rule)
}

func TestScore_ToleranceBoundary(t *testing.T) {
	now := time.Now()
	requests := []model.PendingRequest{
		pending("at_boundary", 50100, now),
		pending("past_boundary", 50101, now),
		pending("below_boundary", 49899, now),
	}

	candidates := Score(model.ParsedSignal{Amount: ptr.Int64(50000)}, requests, DefaultOptions())

	require.Len(t, candidates, 1)
	assert.Equal(t, "at_boundary", candidates[0].Request.RequestID)
}

func TestScore_NoAmount(t *testing.T) {
	requests := []model.PendingRequest{pending("req_1", 50000, time.Now())}

	candidates := Score(model.ParsedSignal{UTR: ptr.String("123456789")}, requests, DefaultOptions())

	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}

func TestScore_Ordering(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)
	requests := []model.PendingRequest{
		pending("near_new", 50050, t3),
		pending("exact_new", 50000, t2),
		pending("near_old", 49990, t1),
		pending("exact_old", 50000, t1),
		pending("far", 70000, t1),
	}

	candidates := Score(model.ParsedSignal{Amount: ptr.Int64(50000)}, requests, DefaultOptions())

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Request.RequestID)
	}
	assert.Equal(t, []string{"exact_old", "exact_new", "near_old", "near_new"}, ids)
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score)
	}
}

func TestScore_CustomTolerance(t *testing.T) {
	requests := []model.PendingRequest{pending("req_1", 50000, time.Now())}
	signal := model.ParsedSignal{Amount: ptr.Int64(49950)}

	assert.Empty(t, Score(signal, requests, Options{Tolerance: 10}))
	assert.Len(t, Score(signal, requests, Options{Tolerance: 50}), 1)
}

func TestScore_DoesNotMutateInput(t *testing.T) {
	now := time.Now()
	requests := []model.PendingRequest{
		pending("b", 50000, now.Add(time.Second)),
		pending("a", 50000, now),
	}

	Score(model.ParsedSignal{Amount: ptr.Int64(50000)}, requests, DefaultOptions())

	assert.Equal(t, "b", requests[0].RequestID)
	assert.Equal(t, "a", requests[1].RequestID)
}
