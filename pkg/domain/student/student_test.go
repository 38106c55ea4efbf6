package student_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ineza/schoolpay/pkg/domain/student"
)

func newStudent(t *testing.T) *student.Student {
	t.Helper()
	st, err := student.New().
		WithSchoolID(uuid.New()).
		WithName("Aline", "Uwase").
		WithCardUID("04:A3:2B:1C").
		Build()
	require.NoError(t, err)
	return st
}

func TestBuilder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *student.Builder
		wantErr bool
	}{
		{"complete", func() *student.Builder {
			return student.New().
				WithSchoolID(uuid.New()).
				WithName("Aline", "Uwase").
				WithCardUID("04:A3:2B:1C")
		}, false},
		{"missing school", func() *student.Builder {
			return student.New().WithName("Aline", "Uwase").WithCardUID("04:A3:2B:1C")
		}, true},
		{"missing name", func() *student.Builder {
			return student.New().WithSchoolID(uuid.New()).WithCardUID("04:A3:2B:1C")
		}, true},
		{"missing card", func() *student.Builder {
			return student.New().WithSchoolID(uuid.New()).WithName("Aline", "Uwase")
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestStudent_CanTap(t *testing.T) {
	st := newStudent(t)
	assert.True(t, st.CanTap())

	t.Run("lost card blocks taps", func(t *testing.T) {
		st := newStudent(t)
		st.ReportLost()
		assert.False(t, st.CanTap())
		assert.Equal(t, student.CardLost, st.CardStatus)
	})

	t.Run("stolen card blocks taps", func(t *testing.T) {
		st := newStudent(t)
		st.ReportStolen()
		assert.False(t, st.CanTap())
	})

	t.Run("deactivated card blocks taps", func(t *testing.T) {
		st := newStudent(t)
		st.Deactivate()
		assert.False(t, st.CanTap())
	})

	t.Run("inactive student blocks taps even with active card", func(t *testing.T) {
		st := newStudent(t)
		st.Active = false
		assert.Equal(t, student.CardActive, st.CardStatus)
		assert.False(t, st.CanTap())
	})

	t.Run("reactivate restores taps", func(t *testing.T) {
		st := newStudent(t)
		st.ReportLost()
		st.Reactivate()
		assert.True(t, st.CanTap())
	})
}

func TestStudent_ReplaceCard(t *testing.T) {
	t.Run("keeps old UID for audit", func(t *testing.T) {
		st := newStudent(t)
		st.ReportLost()
		require.NoError(t, st.ReplaceCard("04:FF:EE:DD"))
		assert.Equal(t, "04:FF:EE:DD", st.CardUID)
		assert.Equal(t, "04:A3:2B:1C", st.PreviousCardUID)
		assert.True(t, st.CanTap())
	})

	t.Run("same UID rejected", func(t *testing.T) {
		st := newStudent(t)
		assert.ErrorIs(t, st.ReplaceCard("04:A3:2B:1C"), student.ErrSameCardUID)
	})

	t.Run("empty UID rejected", func(t *testing.T) {
		st := newStudent(t)
		require.Error(t, st.ReplaceCard(""))
	})
}

func TestCardStatus_Roundtrip(t *testing.T) {
	for _, status := range []student.CardStatus{
		student.CardActive, student.CardLost, student.CardStolen, student.CardDeactivated,
	} {
		parsed, err := student.ParseCardStatus(status.String())
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}

	_, err := student.ParseCardStatus("misplaced")
	require.Error(t, err)
}

func TestStudent_FullName(t *testing.T) {
	st := newStudent(t)
	assert.Equal(t, "Aline Uwase", st.FullName())
}
