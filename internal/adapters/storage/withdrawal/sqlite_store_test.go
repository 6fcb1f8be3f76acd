package withdrawal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkdash/internal/adapters/storage/storagetest"
	withdrawalstore "linkdash/internal/adapters/storage/withdrawal"
	domain "linkdash/internal/domain/withdrawal"
)

func newStore(t *testing.T) *withdrawalstore.SQLiteStore {
	t.Helper()
	db := storagetest.NewDB(t)
	storagetest.InsertAccount(t, db, "u1", "ana@example.com", "member")
	storagetest.InsertAccount(t, db, "u2", "ben@example.com", "member")
	return withdrawalstore.NewSQLiteStore(db)
}

func TestSQLiteStore_SaveAllAndList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveAll(ctx, []domain.Withdrawal{
		{ID: "w1", UserID: "u1", AmountCents: 1500, Method: domain.MethodPayPal, Status: domain.StatusPending, RequestedAt: base},
		{ID: "w2", UserID: "u2", AmountCents: 2500, Method: domain.MethodBank, Status: domain.StatusPending, RequestedAt: base.Add(time.Hour)},
		{ID: "w3", UserID: "u1", AmountCents: 900, Method: domain.MethodBank, Status: domain.StatusPaid, RequestedAt: base.Add(2 * time.Hour), DecidedAt: base, PaidAt: base},
	}))

	pending, err := s.List(ctx, withdrawalstore.ListFilter{Status: domain.StatusPending, Sort: "amount", Dir: "desc"})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "w2", pending[0].ID)

	n, err := s.Count(ctx, withdrawalstore.ListFilter{Search: "ana@"})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "search matches the requesting user's email")

	sum, err := s.SumByStatus(ctx, domain.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 4000, sum)

	w, err := s.GetByID(ctx, "w3")
	require.NoError(t, err)
	assert.True(t, w.PaidAt.Equal(base))
}

func TestSQLiteStore_SaveUpdatesDecisionOnly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	w := domain.Withdrawal{ID: "w1", UserID: "u1", AmountCents: 1500, Method: domain.MethodPayPal, Status: domain.StatusPending, RequestedAt: now}
	require.NoError(t, s.Save(ctx, w))

	require.NoError(t, w.Reject("Duplicate request", now))
	w.AmountCents = 999999
	require.NoError(t, s.Save(ctx, w))

	got, err := s.GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.Equal(t, "Duplicate request", got.Reason)
	assert.Equal(t, 1500, got.AmountCents, "amount is immutable after insert")

	list, err := s.ListByIDs(ctx, []string{"w1", "nope"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, withdrawalstore.ErrNotFound)
}
