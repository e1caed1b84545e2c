// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package participation encodes governance participations as they are
// stored in the metadata of a voting output.
package participation

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Tag is the tag feature that marks a basic output as a voting output.
var Tag = []byte("PARTICIPATE")

const (
	// EventIDLength is the size of an event id.
	EventIDLength = 32

	// MaxParticipations is the maximum number of events a single voting
	// output can participate in.
	MaxParticipations = 255

	// MaxAnswers is the maximum number of answers of one participation.
	MaxAnswers = 255
)

var (
	// ErrEmpty is returned when decoding a participation list without
	// entries.
	ErrEmpty = errors.New("empty participations")

	// ErrMalformed is returned when the metadata is not a valid
	// participation list.
	ErrMalformed = errors.New("malformed participations")
)

// EventID identifies a participation event.
type EventID [EventIDLength]byte

// EventIDFromHex parses the hex form of an event id.
func EventIDFromHex(s string) (EventID, error) {
	var id EventID
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return id, err
	}
	if len(raw) != EventIDLength {
		return id, fmt.Errorf("invalid event id length %d", len(raw))
	}
	copy(id[:], raw)

	return id, nil
}

// String returns the hex form of the id.
func (id EventID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id EventID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *EventID) UnmarshalText(text []byte) error {
	parsed, err := EventIDFromHex(string(text))
	if err != nil {
		return err
	}
	*id = parsed

	return nil
}

// Participation is the set of answers given in one event.
type Participation struct {
	EventID EventID `json:"eventId"`
	Answers []byte  `json:"answers"`
}

// Participations is the list stored in a voting output.
type Participations struct {
	Participations []Participation `json:"participations"`
}

// AddOrReplace sets the participation for p.EventID.
func (p *Participations) AddOrReplace(part Participation) {
	for i := range p.Participations {
		if p.Participations[i].EventID == part.EventID {
			p.Participations[i] = part
			return
		}
	}
	p.Participations = append(p.Participations, part)
}

// Remove deletes the participation for id and returns whether it existed.
func (p *Participations) Remove(id EventID) bool {
	for i := range p.Participations {
		if p.Participations[i].EventID == id {
			p.Participations = append(p.Participations[:i],
				p.Participations[i+1:]...)
			return true
		}
	}
	return false
}

// Has returns true if the list contains a participation for id.
func (p *Participations) Has(id EventID) bool {
	for _, part := range p.Participations {
		if part.EventID == id {
			return true
		}
	}
	return false
}

// Serialize encodes the list: a count byte followed by every event id with
// its count prefixed answers.
func (p *Participations) Serialize() ([]byte, error) {
	if len(p.Participations) > MaxParticipations {
		return nil, fmt.Errorf("%w: %d participations", ErrMalformed,
			len(p.Participations))
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(len(p.Participations)))
	for _, part := range p.Participations {
		if len(part.Answers) > MaxAnswers {
			return nil, fmt.Errorf("%w: %d answers", ErrMalformed,
				len(part.Answers))
		}
		buf.Write(part.EventID[:])
		buf.WriteByte(byte(len(part.Answers)))
		buf.Write(part.Answers)
	}

	return buf.Bytes(), nil
}

// Deserialize decodes the output of Serialize.
func Deserialize(b []byte) (*Participations, error) {
	if len(b) == 0 {
		return nil, ErrEmpty
	}

	n := int(b[0])
	b = b[1:]
	p := &Participations{
		Participations: make([]Participation, 0, n),
	}
	for i := 0; i < n; i++ {
		if len(b) < EventIDLength+1 {
			return nil, ErrMalformed
		}
		var part Participation
		copy(part.EventID[:], b[:EventIDLength])
		numAnswers := int(b[EventIDLength])
		b = b[EventIDLength+1:]
		if len(b) < numAnswers {
			return nil, ErrMalformed
		}
		part.Answers = append([]byte{}, b[:numAnswers]...)
		b = b[numAnswers:]
		p.Participations = append(p.Participations, part)
	}
	if len(b) != 0 {
		return nil, ErrMalformed
	}

	return p, nil
}
