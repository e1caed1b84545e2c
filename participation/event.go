// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package participation

// EventStatus values reported by a node.
const (
	StatusUpcoming   = "upcoming"
	StatusCommencing = "commencing"
	StatusHolding    = "holding"
	StatusEnded      = "ended"
)

// EventData describes a participation event.
type EventData struct {
	Name                   string `json:"name"`
	MilestoneIndexCommence uint32 `json:"milestoneIndexCommence"`
	MilestoneIndexStart    uint32 `json:"milestoneIndexStart"`
	MilestoneIndexEnd      uint32 `json:"milestoneIndexEnd"`
	AdditionalInfo         string `json:"additionalInfo,omitempty"`
}

// Event is a participation event registered with the wallet.
type Event struct {
	ID   EventID   `json:"id"`
	Data EventData `json:"data"`
}

// Ended returns true if the event window closed before milestoneIndex.
func (e *Event) Ended(milestoneIndex uint32) bool {
	return milestoneIndex > e.Data.MilestoneIndexEnd
}

// EventStatus is the state of an event as seen by a node.
type EventStatus struct {
	MilestoneIndex uint32 `json:"milestoneIndex"`
	Status         string `json:"status"`
}

// Ended returns true if the node reports the event as over.
func (s *EventStatus) Ended() bool {
	return s.Status == StatusEnded
}

// StatusAt derives the status of the event at milestoneIndex.
func (e *Event) StatusAt(milestoneIndex uint32) EventStatus {
	status := StatusUpcoming
	switch {
	case milestoneIndex > e.Data.MilestoneIndexEnd:
		status = StatusEnded
	case milestoneIndex >= e.Data.MilestoneIndexStart:
		status = StatusHolding
	case milestoneIndex >= e.Data.MilestoneIndexCommence:
		status = StatusCommencing
	}

	return EventStatus{MilestoneIndex: milestoneIndex, Status: status}
}
