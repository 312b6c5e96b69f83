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

package model

import (
	"time"
)

// ScoringRule names the rule that produced a candidate's score.
type ScoringRule string

const (
	RuleExactAmount     ScoringRule = "exact_amount"
	RuleAmountTolerance ScoringRule = "amount_within_tolerance"
)

// MatchCandidate pairs a pending request with the score it earned against one
// signal. Candidates are recomputed on every scoring pass.
type MatchCandidate struct {
	Request PendingRequest `json:"request"`
	Score   int            `json:"score"`
	Rule    ScoringRule    `json:"rule"`
}

// DecisionKind is the variant of a MatchDecision.
type DecisionKind string

const (
	DecisionAutoMatched  DecisionKind = "auto_matched"
	DecisionNeedsReview  DecisionKind = "needs_review"
	DecisionUnidentified DecisionKind = "unidentified"
)

// MatchDecision is the resolver's verdict for one message. Request and Score are
// set only for DecisionAutoMatched; Candidates only for DecisionNeedsReview.
type MatchDecision struct {
	Kind       DecisionKind     `json:"kind"`
	Signal     ParsedSignal     `json:"signal"`
	Request    *PendingRequest  `json:"request,omitempty"`
	Score      int              `json:"score,omitempty"`
	Candidates []MatchCandidate `json:"candidates"`
}

// AutoMatched builds the decision for an unambiguous high-confidence match.
func AutoMatched(request PendingRequest, signal ParsedSignal, score int) MatchDecision {
	return MatchDecision{Kind: DecisionAutoMatched, Signal: signal, Request: &request, Score: score, Candidates: []MatchCandidate{}}
}

// NeedsReview builds the decision that routes a message to the review queue.
func NeedsReview(signal ParsedSignal, candidates []MatchCandidate) MatchDecision {
	if candidates == nil {
		candidates = []MatchCandidate{}
	}
	return MatchDecision{Kind: DecisionNeedsReview, Signal: signal, Candidates: candidates}
}

// Unidentified builds the decision for a message with no candidates at all.
func Unidentified(signal ParsedSignal) MatchDecision {
	return MatchDecision{Kind: DecisionUnidentified, Signal: signal, Candidates: []MatchCandidate{}}
}

// MessageStatus returns the status a message is stored with for this decision.
// Unidentified is a presentation of needs_review and is stored identically.
func (d MatchDecision) MessageStatus() MessageStatus {
	if d.Kind == DecisionAutoMatched {
		return MessageAutoMatched
	}
	return MessageNeedsReview
}

// MatchType tells automatic matches apart from operator-driven ones.
type MatchType string

const (
	MatchTypeAuto   MatchType = "auto"
	MatchTypeManual MatchType = "manual"
)

// MatchRecord is the append-only audit of how a request got settled. MessageID is
// nil for manual verification without an SMS; Actor is nil for automatic matches.
type MatchRecord struct {
	RecordID  string    `json:"record_id"`
	RequestID string    `json:"request_id"`
	MessageID *string   `json:"message_id"`
	Score     int       `json:"score"`
	MatchType MatchType `json:"match_type"`
	Actor     *string   `json:"actor"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// Settlement methods recorded on a settlement transaction.
const (
	SettlementMethodSMS    = "upi_sms"
	SettlementMethodManual = "manual"
)

// SettlementTransaction records the funds that settled a pending request.
type SettlementTransaction struct {
	TransactionID string    `json:"transaction_id"`
	RequestID     string    `json:"request_id"`
	MessageID     *string   `json:"message_id"`
	Amount        int64     `json:"amount"`
	UTR           *string   `json:"utr"`
	Method        string    `json:"method"`
	CreatedAt     time.Time `json:"created_at"`
}

// MatchApplication is every write a successful match makes. The datasource
// applies it as a single unit or not at all.
type MatchApplication struct {
	RequestID     string
	MessageID     *string
	MessageStatus MessageStatus
	SettledAt     time.Time
	Settlement    SettlementTransaction
	Record        MatchRecord
	Audit         AuditEvent
}
