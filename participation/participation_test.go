// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package participation

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParticipationsRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n")
		p := &Participations{}
		for i := 0; i < n; i++ {
			var id EventID
			copy(id[:], rapid.SliceOfN(rapid.Byte(), EventIDLength,
				EventIDLength).Draw(t, "eventID"))
			p.Participations = append(p.Participations, Participation{
				EventID: id,
				Answers: rapid.SliceOfN(rapid.Byte(), 0,
					MaxAnswers).Draw(t, "answers"),
			})
		}

		raw, err := p.Serialize()
		require.NoError(t, err)

		decoded, err := Deserialize(raw)
		require.NoError(t, err)
		require.Len(t, decoded.Participations, n)
		for i := range p.Participations {
			require.Equal(t, p.Participations[i].EventID,
				decoded.Participations[i].EventID)
			require.Equal(t, append([]byte{},
				p.Participations[i].Answers...),
				decoded.Participations[i].Answers)
		}
	})
}

func TestDeserializeMalformed(t *testing.T) {
	t.Parallel()

	_, err := Deserialize(nil)
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Deserialize([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrMalformed)

	p := &Participations{Participations: []Participation{{
		EventID: EventID{1}, Answers: []byte{0, 1},
	}}}
	raw, err := p.Serialize()
	require.NoError(t, err)

	_, err = Deserialize(append(raw, 0))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Deserialize(raw[:len(raw)-1])
	require.ErrorIs(t, err, ErrMalformed)
}

func TestAddOrReplace(t *testing.T) {
	t.Parallel()

	p := &Participations{}
	p.AddOrReplace(Participation{EventID: EventID{1}, Answers: []byte{0}})
	p.AddOrReplace(Participation{EventID: EventID{2}, Answers: []byte{1}})
	p.AddOrReplace(Participation{EventID: EventID{1}, Answers: []byte{2}})

	require.Len(t, p.Participations, 2)
	require.Equal(t, []byte{2}, p.Participations[0].Answers)
	require.True(t, p.Has(EventID{2}))
	require.True(t, p.Remove(EventID{2}))
	require.False(t, p.Remove(EventID{2}))
	require.False(t, p.Has(EventID{2}))
}

func TestEventStatus(t *testing.T) {
	t.Parallel()

	e := &Event{Data: EventData{
		MilestoneIndexCommence: 10,
		MilestoneIndexStart:    20,
		MilestoneIndexEnd:      30,
	}}

	require.Equal(t, StatusUpcoming, e.StatusAt(5).Status)
	require.Equal(t, StatusCommencing, e.StatusAt(10).Status)
	require.Equal(t, StatusHolding, e.StatusAt(30).Status)
	status := e.StatusAt(31)
	require.True(t, status.Ended())
	require.True(t, e.Ended(31))
}
