package student_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infracache "github.com/ineza/schoolpay/infra/cache"
	"github.com/ineza/schoolpay/internal/fixtures"
	"github.com/ineza/schoolpay/pkg/domain/student"
	studentsvc "github.com/ineza/schoolpay/pkg/service/student"
)

func newService(t *testing.T) (*studentsvc.Service, *fixtures.MemoryUoW, *infracache.MemoryCardStatusCache) {
	t.Helper()
	uow := fixtures.NewMemoryUoW()
	deps, _ := fixtures.Deps(t, uow)
	cardCache := infracache.NewMemoryCardStatusCache()
	deps.CardCache = cardCache
	return studentsvc.NewService(deps), uow, cardCache
}

func TestEnroll(t *testing.T) {
	svc, _, _ := newService(t)
	schoolID := uuid.New()

	st, err := svc.Enroll(context.Background(), studentsvc.EnrollInput{
		SchoolID:    schoolID,
		FirstName:   "Aline",
		LastName:    "Uwase",
		ParentPhone: "+250788000001",
		CardUID:     "04:A3:2B:1C",
	})
	require.NoError(t, err)
	assert.Equal(t, student.CardActive, st.CardStatus)
	assert.True(t, st.CanTap())

	got, err := svc.GetByCardUID(context.Background(), "04:A3:2B:1C")
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
}

func TestEnroll_DuplicateCardUID(t *testing.T) {
	svc, _, _ := newService(t)
	schoolID := uuid.New()

	_, err := svc.Enroll(context.Background(), studentsvc.EnrollInput{
		SchoolID:  schoolID,
		FirstName: "Aline",
		LastName:  "Uwase",
		CardUID:   "04:A3:2B:1C",
	})
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), studentsvc.EnrollInput{
		SchoolID:  schoolID,
		FirstName: "Eric",
		LastName:  "Mugisha",
		CardUID:   "04:A3:2B:1C",
	})
	assert.ErrorIs(t, err, student.ErrCardUIDTaken)
}

func TestReportLost_EvictsCache(t *testing.T) {
	svc, uow, cardCache := newService(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, uow, schoolID, "04:A3:2B:1C", "+250788000001")

	require.NoError(t, cardCache.Set(
		context.Background(), st.CardUID, student.CardActive, 0))

	updated, err := svc.ReportLost(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, student.CardLost, updated.CardStatus)
	assert.False(t, updated.CanTap())

	_, found, err := cardCache.Get(context.Background(), st.CardUID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCardLifecycle(t *testing.T) {
	svc, uow, _ := newService(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, uow, schoolID, "04:A3:2B:1C", "+250788000001")

	stolen, err := svc.ReportStolen(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, student.CardStolen, stolen.CardStatus)

	reactivated, err := svc.ReactivateCard(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, student.CardActive, reactivated.CardStatus)

	deactivated, err := svc.DeactivateCard(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, student.CardDeactivated, deactivated.CardStatus)
}

func TestReplaceCard(t *testing.T) {
	svc, uow, _ := newService(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, uow, schoolID, "04:A3:2B:1C", "+250788000001")

	updated, err := svc.ReplaceCard(context.Background(), st.ID, "04:FF:EE:DD")
	require.NoError(t, err)
	assert.Equal(t, "04:FF:EE:DD", updated.CardUID)
	assert.Equal(t, "04:A3:2B:1C", updated.PreviousCardUID)
	assert.Equal(t, student.CardActive, updated.CardStatus)

	// The old UID no longer resolves.
	_, err = svc.GetByCardUID(context.Background(), "04:A3:2B:1C")
	assert.ErrorIs(t, err, student.ErrStudentNotFound)
}

func TestReplaceCard_SameUID(t *testing.T) {
	svc, uow, _ := newService(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, uow, schoolID, "04:A3:2B:1C", "+250788000001")

	_, err := svc.ReplaceCard(context.Background(), st.ID, "04:A3:2B:1C")
	assert.ErrorIs(t, err, student.ErrSameCardUID)
}

func TestReplaceCard_TakenUID(t *testing.T) {
	svc, uow, _ := newService(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, uow, schoolID, "04:A3:2B:1C", "+250788000001")
	other, err := student.New().
		WithSchoolID(schoolID).
		WithName("Eric", "Mugisha").
		WithCardUID("04:FF:EE:DD").
		Build()
	require.NoError(t, err)
	repo, err := uow.StudentRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), other))

	_, err = svc.ReplaceCard(context.Background(), st.ID, "04:FF:EE:DD")
	assert.ErrorIs(t, err, student.ErrCardUIDTaken)
}

func TestDeactivateStudent_KeepsRecord(t *testing.T) {
	svc, uow, _ := newService(t)
	schoolID := uuid.New()
	st := fixtures.SeedStudent(t, uow, schoolID, "04:A3:2B:1C", "+250788000001")

	updated, err := svc.Deactivate(context.Background(), st.ID)
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.False(t, updated.CanTap())

	// Still readable for history.
	got, err := svc.Get(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
}
