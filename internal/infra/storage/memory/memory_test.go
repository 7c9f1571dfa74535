package memory

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "depositrent/internal/app/outbox"
	"depositrent/internal/app/uow"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	"depositrent/internal/domain/shared/daterange"
	domainuser "depositrent/internal/domain/user"
)

var now = time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

func newDeposit(t *testing.T, name string) *domaindeposits.Deposit {
	t.Helper()
	dep, err := domaindeposits.NewDeposit(domaindeposits.CreateParams{Name: name, Area: "A", Size: "Small", Now: now})
	require.NoError(t, err)
	return dep
}

func begin(t *testing.T, f Factory) uow.UnitOfWork {
	t.Helper()
	unit, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return unit
}

func TestUnitStagesUntilCommit(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}

	writer := begin(t, f)
	require.NoError(t, writer.Deposits().Save(ctx, newDeposit(t, "North")))

	staged, err := writer.Deposits().ByName(ctx, "North")
	require.NoError(t, err)
	assert.Equal(t, domaindeposits.Name("North"), staged.Name)

	reader := begin(t, f)
	_, err = reader.Deposits().ByName(ctx, "North")
	assert.ErrorIs(t, err, domaindeposits.ErrDepositNotFound)

	require.NoError(t, writer.Commit(ctx))
	got, err := reader.Deposits().ByName(ctx, "North")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}

	unit := begin(t, f)
	require.NoError(t, unit.Deposits().Save(ctx, newDeposit(t, "North")))
	require.NoError(t, unit.Rollback(ctx))
	assert.ErrorIs(t, unit.Commit(ctx), ErrUnitClosed)

	list, err := begin(t, f).Deposits().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReturnedAggregatesAreCopies(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	unit := begin(t, f)
	require.NoError(t, unit.Deposits().Save(ctx, newDeposit(t, "North")))
	require.NoError(t, unit.Commit(ctx))

	reader := begin(t, f)
	dep, err := reader.Deposits().ByName(ctx, "North")
	require.NoError(t, err)
	require.NoError(t, dep.AddAvailabilityPeriod(daterange.Must(now, now.AddDate(0, 0, 3)), now))

	again, err := reader.Deposits().ByName(ctx, "North")
	require.NoError(t, err)
	assert.Empty(t, again.Availability.Available())
}

func TestConcurrentUpdateDetected(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	seed := begin(t, f)
	require.NoError(t, seed.Deposits().Save(ctx, newDeposit(t, "North")))
	require.NoError(t, seed.Commit(ctx))

	first, second := begin(t, f), begin(t, f)
	a, err := first.Deposits().ByName(ctx, "North")
	require.NoError(t, err)
	b, err := second.Deposits().ByName(ctx, "North")
	require.NoError(t, err)

	require.NoError(t, a.AddAvailabilityPeriod(daterange.Must(now, now.AddDate(0, 0, 3)), now))
	require.NoError(t, b.AddAvailabilityPeriod(daterange.Must(now.AddDate(0, 0, 10), now.AddDate(0, 0, 12)), now))
	require.NoError(t, first.Deposits().Save(ctx, a))
	require.NoError(t, second.Deposits().Save(ctx, b))

	require.NoError(t, first.Commit(ctx))
	assert.ErrorIs(t, second.Commit(ctx), ErrConcurrentUpdate)

	dep, err := begin(t, f).Deposits().ByName(ctx, "North")
	require.NoError(t, err)
	assert.Equal(t, []daterange.DateRange{daterange.Must(now, now.AddDate(0, 0, 3))}, dep.Availability.Available())
}

func TestDuplicateCreateConflicts(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	first, second := begin(t, f), begin(t, f)
	require.NoError(t, first.Deposits().Save(ctx, newDeposit(t, "North")))
	require.NoError(t, second.Deposits().Save(ctx, newDeposit(t, "North")))
	require.NoError(t, first.Commit(ctx))
	assert.ErrorIs(t, second.Commit(ctx), ErrConcurrentUpdate)
}

func TestReadOnlyUnitRefusesWrites(t *testing.T) {
	unit, err := Factory{Store: NewStore()}.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	assert.ErrorIs(t, unit.Deposits().Save(context.Background(), newDeposit(t, "North")), ErrReadOnly)
}

func TestBookingListFilters(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	unit := begin(t, f)
	for i, client := range []string{"c1", "c2", "c1"} {
		b := &domainbooking.Booking{
			ID:          domainbooking.BookingID(string(rune('a' + i))),
			DepositName: "North",
			ClientID:    client,
			Stage:       domainbooking.StagePending,
			CreatedAt:   now.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, unit.Bookings().Save(ctx, b))
	}
	require.NoError(t, unit.Commit(ctx))

	list, err := begin(t, f).Bookings().List(ctx, domainbooking.Filter{ClientID: "c1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domainbooking.BookingID("a"), list[0].ID)
	assert.Equal(t, domainbooking.BookingID("c"), list[1].ID)

	_, err = begin(t, f).Bookings().ByID(ctx, "zzz")
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestUsersAndRegistry(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	unit := begin(t, f)
	reg, err := unit.Registry().Load(ctx)
	require.NoError(t, err)
	assert.False(t, reg.AdminAssigned)

	u, err := reg.Enroll(domainuser.EnrollParams{ID: "u1", Email: "Ada@Example.com", Name: "Ada", PasswordHash: "h", Now: now})
	require.NoError(t, err)
	require.NoError(t, unit.Users().Save(ctx, u))
	require.NoError(t, unit.Registry().Save(ctx, reg))
	require.NoError(t, unit.Commit(ctx))

	reader := begin(t, f)
	got, err := reader.Users().ByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, domainuser.RoleAdministrator, got.Role)
	stored, err := reader.Registry().Load(ctx)
	require.NoError(t, err)
	assert.True(t, stored.AdminAssigned)

	other := begin(t, f)
	dup, err := domainuser.NewUser(domainuser.CreateParams{ID: "u2", Email: "ada@example.com", Name: "Eve", PasswordHash: "h", Role: domainuser.RoleClient, CreatedAt: now})
	require.NoError(t, err)
	require.NoError(t, other.Users().Save(ctx, dup))
	assert.ErrorIs(t, other.Commit(ctx), domainuser.ErrEmailAlreadyUsed)
}

func TestOutboxReleasesRecordsOnCommit(t *testing.T) {
	ctx := context.Background()
	box := NewOutbox()
	f := Factory{Store: NewStore(), Outbox: box}

	unit := begin(t, f)
	execCtx := uow.Bind(ctx, unit)
	require.NoError(t, box.Add(execCtx, appoutbox.EventRecord{ID: "e1", Name: "deposit.created"}))
	assert.Equal(t, 0, box.Pending())

	rolled := begin(t, f)
	require.NoError(t, box.Add(uow.Bind(ctx, rolled), appoutbox.EventRecord{ID: "e2", Name: "deposit.created"}))
	require.NoError(t, rolled.Rollback(ctx))

	require.NoError(t, unit.Commit(ctx))
	assert.Equal(t, 1, box.Pending())

	claimed, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "e1", claimed.ID)

	none, err := box.Claim(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, box.MarkFailed(ctx, "e1", time.Now().Add(time.Hour), "down"))
	none, err = box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, box.MarkFailed(ctx, "e1", time.Now().Add(-time.Second), "down"))
	retry, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, 2, retry.Attempts)

	require.NoError(t, box.MarkSent(ctx, "e1"))
	assert.Equal(t, 0, box.Pending())
}

func TestOutboxFlushWakes(t *testing.T) {
	box := NewOutbox()
	require.NoError(t, box.Flush(context.Background()))
	require.NoError(t, box.Flush(context.Background()))
	select {
	case <-box.Wakeup():
	default:
		t.Fatal("expected wakeup")
	}
}

func TestKeyedLocker(t *testing.T) {
	locker := NewKeyedLocker()
	var inside, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "deposit:North")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&peak) {
				atomic.StoreInt32(&peak, n)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
	assert.Empty(t, locker.slots)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	unlock()
	assert.Empty(t, locker.slots)
}

func TestReportBucketStoresUploads(t *testing.T) {
	b := NewReportBucket()
	url, err := b.Upload(context.Background(), "reports/a.csv", strings.NewReader("id\n1\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "memory://reports/reports/a.csv", url)

	r, ct, ok := b.Open("reports/a.csv")
	require.True(t, ok)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", ct)
	assert.Equal(t, "id\n1\n", string(body))

	_, err = b.Upload(context.Background(), "", strings.NewReader(""), "")
	assert.Error(t, err)
}

func TestInboxRemembersEvents(t *testing.T) {
	inbox := NewInbox()
	seen, err := inbox.Seen(context.Background(), "e-1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = inbox.Seen(context.Background(), "e-1")
	require.NoError(t, err)
	assert.True(t, seen)
}
