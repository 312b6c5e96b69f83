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
	"encoding/json"
	"time"
)

// MessageStatus is the resolution state of an incoming message.
type MessageStatus string

const (
	MessageUnprocessed     MessageStatus = "unprocessed"
	MessageAutoMatched     MessageStatus = "auto_matched"
	MessageNeedsReview     MessageStatus = "needs_review"
	MessageManuallyMatched MessageStatus = "manually_matched"
	MessageDismissed       MessageStatus = "dismissed"
)

// ReviewLabelUnidentified is the queue label for a message with no candidates.
const ReviewLabelUnidentified = "unidentified"

// IsTerminal reports whether no further resolution may be applied to a message in this state.
func (s MessageStatus) IsTerminal() bool {
	switch s {
	case MessageAutoMatched, MessageManuallyMatched, MessageDismissed:
		return true
	}
	return false
}

// IncomingMessage is a raw SMS admitted through the webhook together with the
// signal derived from it. RawText is never modified after admission and MetaData
// is stored exactly as the device sent it.
type IncomingMessage struct {
	MessageID      string          `json:"message_id"`
	DeviceID       string          `json:"device_id"`
	MerchantID     string          `json:"merchant_id"`
	Sender         string          `json:"sender"`
	RawText        string          `json:"message"`
	ReceivedAt     time.Time       `json:"received_at"`
	MetaData       json.RawMessage `json:"metadata,omitempty"`
	Signal         ParsedSignal    `json:"signal"`
	Status         MessageStatus   `json:"status"`
	CandidateCount int             `json:"candidate_count"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	SubmissionHash string          `json:"-"`
}

// ReviewLabel returns how a message is presented in the review queue. A message
// awaiting review with no candidates is shown as unidentified; storage is identical.
func (m IncomingMessage) ReviewLabel() string {
	if m.Status == MessageNeedsReview && m.CandidateCount == 0 {
		return ReviewLabelUnidentified
	}
	return string(m.Status)
}

// Submission is what a device hands to the webhook before a message exists.
type Submission struct {
	DeviceID   string
	Credential string
	Sender     string
	Text       string
	ReceivedAt time.Time
	MetaData   json.RawMessage
}

// IngestResult acknowledges an admitted submission.
type IngestResult struct {
	Message   *IncomingMessage `json:"message"`
	Decision  *MatchDecision   `json:"decision,omitempty"`
	Duplicate bool             `json:"duplicate"`
}

// ReviewEntry is a message as shown in the manual review queue.
type ReviewEntry struct {
	IncomingMessage
	Label string `json:"label"`
}
