package lifecycle

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allActions = []Action{ActionConfirm, ActionCheckIn, ActionCheckOut, ActionCancel, ActionStart, ActionComplete}

func TestBookingTable(t *testing.T) {
	cases := []struct {
		from    Status
		actions []Action
	}{
		{StatusPending, []Action{ActionConfirm, ActionCancel}},
		{StatusConfirmed, []Action{ActionCheckIn, ActionCancel}},
		{StatusCheckedIn, []Action{ActionCheckOut}},
		{StatusCheckedOut, []Action{}},
		{StatusCancelled, []Action{}},
	}
	for _, tc := range cases {
		t.Run(string(tc.from), func(t *testing.T) {
			assert.Equal(t, tc.actions, LegalActions(KindBooking, tc.from))
		})
	}
}

func TestTaskTable(t *testing.T) {
	assert.Equal(t, []Action{ActionStart, ActionCancel}, LegalActions(KindTask, StatusPending))
	assert.Equal(t, []Action{ActionComplete, ActionCancel}, LegalActions(KindTask, StatusInProgress))
	assert.Empty(t, LegalActions(KindTask, StatusCompleted))
	assert.Empty(t, LegalActions(KindTask, StatusCancelled))
	assert.False(t, ValidFor(KindTask, StatusCheckedIn))
	assert.False(t, ValidFor(KindBooking, StatusInProgress))
}

func TestNext(t *testing.T) {
	to, err := Next(KindBooking, StatusPending, ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, to)

	to, err = Next(KindBooking, StatusConfirmed, ActionCheckIn)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, to)

	to, err = Next(KindTask, StatusInProgress, ActionComplete)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, to)

	// Checked-in bookings cannot be cancelled.
	_, err = Next(KindBooking, StatusCheckedIn, ActionCancel)
	assert.True(t, errors.Is(err, ErrIllegalTransition))

	_, err = Next(KindBooking, StatusCheckedOut, ActionCheckOut)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(KindBooking, StatusCheckedOut))
	assert.True(t, Terminal(KindBooking, StatusCancelled))
	assert.False(t, Terminal(KindBooking, StatusCheckedIn))
	assert.True(t, Terminal(KindTask, StatusCompleted))
}

func TestParse(t *testing.T) {
	_, err := ParseStatus("archived")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
	st, err := ParseStatus("checked-in")
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, st)

	_, err = ParseAction("teleport")
	assert.Error(t, err)
	_, err = ParseKind("invoice")
	assert.Error(t, err)
}

func TestTransitionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	kinds := gen.OneConstOf(KindBooking, KindTask)
	actions := gen.IntRange(0, len(allActions)-1)
	statuses := gen.IntRange(0, 4)

	properties.Property("Next succeeds exactly for legal actions", prop.ForAll(
		func(kind Kind, si, ai int) bool {
			all := Statuses(kind)
			st := all[si%len(all)]
			action := allActions[ai]
			legal := false
			for _, a := range LegalActions(kind, st) {
				if a == action {
					legal = true
				}
			}
			to, err := Next(kind, st, action)
			if legal {
				return err == nil && ValidFor(kind, to)
			}
			return errors.Is(err, ErrIllegalTransition) && to == ""
		},
		kinds, statuses, actions,
	))

	properties.Property("walks always terminate in a terminal status", prop.ForAll(
		func(kind Kind, picks []int) bool {
			st := StatusPending
			for steps := 0; steps < 10; steps++ {
				legal := LegalActions(kind, st)
				if len(legal) == 0 {
					return Terminal(kind, st)
				}
				pick := 0
				if steps < len(picks) {
					pick = picks[steps] % len(legal)
				}
				next, err := Next(kind, st, legal[pick])
				if err != nil {
					return false
				}
				st = next
			}
			return false
		},
		kinds, gen.SliceOf(gen.IntRange(0, 10)),
	))

	properties.TestingRun(t)
}
