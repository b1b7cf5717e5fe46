package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-diary/internal/application"
	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/internal/infrastructure/memory"
)

var (
	kabilan = application.Actor{UserID: "u-kabilan"}
	afrin   = application.Actor{UserID: "u-afrin"}
	admin   = application.Actor{UserID: "u-admin", IsAdmin: true}
)

type entryFixture struct {
	store *memory.Store
	svc   *application.EntryService
	clock time.Time
}

func newEntryFixture(t *testing.T, loc *time.Location) *entryFixture {
	t.Helper()
	f := &entryFixture{
		store: memory.NewStore(),
		clock: time.Date(2024, 5, 1, 10, 0, 0, 0, loc),
	}
	f.store.Now = func() time.Time { return f.clock }
	f.svc = application.NewEntryService(f.store.Entries(), loc, nil)
	f.svc.Now = func() time.Time { return f.clock }
	return f
}

func (f *entryFixture) createAt(t *testing.T, at time.Time, actor application.Actor, content string) *entity.Entry {
	t.Helper()
	f.clock = at
	e, err := f.svc.Create(context.Background(), actor, content)
	require.NoError(t, err)
	return e
}

func ids(entries []entity.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestListForDay_VisibilityAndBounds(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	f := newEntryFixture(t, loc)
	day := application.Day{Year: 2024, Month: time.May, Day: 1}

	before := f.createAt(t, time.Date(2024, 4, 30, 23, 59, 59, 0, loc), kabilan, "late last night")
	midnight := f.createAt(t, time.Date(2024, 5, 1, 0, 0, 0, 0, loc), kabilan, "just after midnight")
	afrinNoon := f.createAt(t, time.Date(2024, 5, 1, 12, 0, 0, 0, loc), afrin, "lunch")
	lastSecond := f.createAt(t, time.Date(2024, 5, 1, 23, 59, 59, 999, loc), kabilan, "before bed")
	next := f.createAt(t, time.Date(2024, 5, 2, 0, 0, 0, 0, loc), kabilan, "next day")
	_, _ = before, next

	got, err := f.svc.ListForDay(context.Background(), kabilan, day)
	require.NoError(t, err)
	assert.Equal(t, []string{midnight.ID, lastSecond.ID}, ids(got))

	got, err = f.svc.ListForDay(context.Background(), admin, day)
	require.NoError(t, err)
	assert.Equal(t, []string{midnight.ID, afrinNoon.ID, lastSecond.ID}, ids(got))

	got, err = f.svc.ListForDay(context.Background(), afrin, application.Day{Year: 2024, Month: time.June, Day: 1})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListForDay_TiesOrderedByID(t *testing.T) {
	f := newEntryFixture(t, time.UTC)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	a := f.createAt(t, at, kabilan, "one")
	b := f.createAt(t, at, kabilan, "two")

	got, err := f.svc.ListForDay(context.Background(), kabilan, application.DayOf(at, time.UTC))
	require.NoError(t, err)
	want := []string{a.ID, b.ID}
	if b.ID < a.ID {
		want = []string{b.ID, a.ID}
	}
	assert.Equal(t, want, ids(got))
}

func TestEntryService_RequiresActor(t *testing.T) {
	f := newEntryFixture(t, time.UTC)
	ctx := context.Background()
	var nobody application.Actor

	_, err := f.svc.ListForDay(ctx, nobody, f.svc.Today())
	assert.ErrorIs(t, err, application.ErrNotAuthenticated)
	_, err = f.svc.Create(ctx, nobody, "hi")
	assert.ErrorIs(t, err, application.ErrNotAuthenticated)
	_, err = f.svc.Update(ctx, nobody, "id", "hi")
	assert.ErrorIs(t, err, application.ErrNotAuthenticated)
	assert.ErrorIs(t, f.svc.Delete(ctx, nobody, "id"), application.ErrNotAuthenticated)
}

func TestCreate_ValidatesAndSanitizesContent(t *testing.T) {
	f := newEntryFixture(t, time.UTC)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\n\t", "<script>alert(1)</script>", "<p>&nbsp;</p>"} {
		_, err := f.svc.Create(ctx, kabilan, content)
		var ve *application.ValidationError
		require.ErrorAs(t, err, &ve, "content %q", content)
		assert.Equal(t, "content", ve.Field)
	}
	got, err := f.svc.ListForDay(ctx, kabilan, f.svc.Today())
	require.NoError(t, err)
	assert.Empty(t, got, "rejected content never reaches the store")

	e, err := f.svc.Create(ctx, kabilan, `  <p onclick="steal()">Dear <b>diary</b></p><script>x()</script> `)
	require.NoError(t, err)
	assert.Equal(t, "<p>Dear <b>diary</b></p>", e.Content)
	assert.Equal(t, kabilan.UserID, e.UserID)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, f.clock.UTC(), e.CreatedAt)
}

func TestUpdate_OwnerOrAdmin(t *testing.T) {
	f := newEntryFixture(t, time.UTC)
	ctx := context.Background()
	e := f.createAt(t, f.clock, kabilan, "original")

	_, err := f.svc.Update(ctx, afrin, e.ID, "hijacked")
	assert.ErrorIs(t, err, application.ErrForbidden)

	updated, err := f.svc.Update(ctx, kabilan, e.ID, "edited by owner")
	require.NoError(t, err)
	assert.Equal(t, "edited by owner", updated.Content)

	f.clock = f.clock.Add(time.Hour)
	updated, err = f.svc.Update(ctx, admin, e.ID, "edited by admin")
	require.NoError(t, err)
	assert.Equal(t, "edited by admin", updated.Content)
	assert.Equal(t, kabilan.UserID, updated.UserID, "ownership never changes")
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = f.svc.Update(ctx, kabilan, "missing", "x")
	assert.ErrorIs(t, err, application.ErrEntryNotFound)

	_, err = f.svc.Update(ctx, kabilan, e.ID, "  ")
	var ve *application.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDelete_OwnerOrAdmin(t *testing.T) {
	f := newEntryFixture(t, time.UTC)
	ctx := context.Background()
	mine := f.createAt(t, f.clock, kabilan, "mine")
	theirs := f.createAt(t, f.clock, afrin, "theirs")

	assert.ErrorIs(t, f.svc.Delete(ctx, kabilan, theirs.ID), application.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, kabilan, mine.ID))
	require.NoError(t, f.svc.Delete(ctx, admin, theirs.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, kabilan, mine.ID), application.ErrEntryNotFound)

	var ve *application.ValidationError
	assert.ErrorAs(t, f.svc.Delete(ctx, kabilan, ""), &ve)

	got, err := f.svc.ListForDay(ctx, admin, f.svc.Today())
	require.NoError(t, err)
	assert.Empty(t, got)
}

// failingEntries wraps a repository and fails the selected calls.
type failingEntries struct {
	repository.EntryRepository
	listErr   error
	updateErr error
}

func (r failingEntries) ListCreatedBetween(ctx context.Context, from, to time.Time, owner string) ([]entity.Entry, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.EntryRepository.ListCreatedBetween(ctx, from, to, owner)
}

func (r failingEntries) UpdateContent(ctx context.Context, id, owner, content string) (*entity.Entry, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	return r.EntryRepository.UpdateContent(ctx, id, owner, content)
}

func TestEntryService_StoreErrors(t *testing.T) {
	f := newEntryFixture(t, time.UTC)
	ctx := context.Background()
	e := f.createAt(t, f.clock, kabilan, "entry")

	boom := errors.New("connection refused")
	f.svc.Repo = failingEntries{EntryRepository: f.store.Entries(), listErr: boom, updateErr: repository.ErrAccessDenied}

	_, err := f.svc.ListForDay(ctx, kabilan, f.svc.Today())
	var se *application.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "list entries", se.Op)
	assert.ErrorIs(t, err, boom)

	_, err = f.svc.Update(ctx, kabilan, e.ID, "new")
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, application.ErrForbidden)
}

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[string]entity.Entry
	hits    []entity.Entry
	owner   string
}

func (x *fakeIndex) Index(_ context.Context, e entity.Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.indexed == nil {
		x.indexed = map[string]entity.Entry{}
	}
	x.indexed[e.ID] = e
	return nil
}

func (x *fakeIndex) Remove(_ context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.indexed, id)
	return nil
}

func (x *fakeIndex) Search(_ context.Context, _, owner string, _ int) ([]entity.Entry, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.owner = owner
	return x.hits, nil
}

func TestSearch(t *testing.T) {
	f := newEntryFixture(t, time.UTC)
	ctx := context.Background()

	_, err := f.svc.Search(ctx, kabilan, "diary", 0)
	assert.ErrorIs(t, err, application.ErrSearchDisabled)

	idx := &fakeIndex{}
	f.svc.Indexer = idx
	mine := f.createAt(t, f.clock, kabilan, "my diary")
	theirs := f.createAt(t, f.clock, afrin, "their diary")
	assert.Len(t, idx.indexed, 2)

	idx.hits = []entity.Entry{*mine, *theirs}
	got, err := f.svc.Search(ctx, kabilan, "diary", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{mine.ID}, ids(got))
	assert.Equal(t, kabilan.UserID, idx.owner)

	got, err = f.svc.Search(ctx, admin, "diary", 500)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Empty(t, idx.owner)

	_, err = f.svc.Search(ctx, kabilan, "  ", 0)
	var ve *application.ValidationError
	assert.ErrorAs(t, err, &ve)

	require.NoError(t, f.svc.Delete(ctx, kabilan, mine.ID))
	assert.Len(t, idx.indexed, 1)
}

type fakeExports struct {
	name, contentType string
	body              []byte
}

func (x *fakeExports) Put(_ context.Context, name, contentType string, body []byte) (string, error) {
	x.name, x.contentType, x.body = name, contentType, body
	return "gs://exports/" + name, nil
}

func TestExportDay(t *testing.T) {
	f := newEntryFixture(t, time.UTC)
	ctx := context.Background()
	day := f.svc.Today()
	f.createAt(t, f.clock, kabilan, "one")
	f.createAt(t, f.clock, afrin, "two")

	_, err := f.svc.ExportDay(ctx, admin, day)
	assert.ErrorIs(t, err, application.ErrExportDisabled)

	store := &fakeExports{}
	f.svc.Exports = store
	_, err = f.svc.ExportDay(ctx, kabilan, day)
	assert.ErrorIs(t, err, application.ErrForbidden)

	loc, err := f.svc.ExportDay(ctx, admin, day)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(store.name, "exports/2024-05-01/"))
	assert.True(t, strings.HasSuffix(store.name, ".json"))
	assert.Equal(t, "gs://exports/"+store.name, loc)
	assert.Equal(t, "application/json", store.contentType)

	var doc application.DayExport
	require.NoError(t, json.Unmarshal(store.body, &doc))
	assert.Equal(t, "2024-05-01", doc.Day)
	assert.Equal(t, admin.UserID, doc.ExportedBy)
	assert.Len(t, doc.Entries, 2)
}

func TestEntryService_PublishesMutations(t *testing.T) {
	f := newEntryFixture(t, time.UTC)
	ctx := context.Background()
	acts := &activityLog{}
	f.svc.Activity = acts

	e := f.createAt(t, f.clock, kabilan, "hello")
	_, err := f.svc.Update(ctx, kabilan, e.ID, "hello again")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, kabilan, e.ID))

	assert.Equal(t, []string{
		entity.ActivityEntryCreated,
		entity.ActivityEntryUpdated,
		entity.ActivityEntryDeleted,
	}, acts.Kinds())
}
