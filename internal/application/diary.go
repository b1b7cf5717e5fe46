package application

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

// View is a snapshot of one client's diary state.
type View struct {
	Session *entity.Session
	IsAdmin bool
	Day     Day
	Entries []entity.Entry
}

func (v View) Authenticated() bool { return v.Session != nil }

// Diary keeps a client's view consistent with its session. It reacts to
// session transitions (admin lookup and loading today on sign-in, clearing on
// sign-out) and re-reads the selected day after every mutation.
type Diary struct {
	Sessions *SessionManager
	Entries  *EntryService
	Admins   *AdminResolver
	Logger   *logrus.Logger

	mu      sync.Mutex
	view    View
	gen     uint64
	loadErr error
	changed chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	sub       *Subscription
	closeOnce sync.Once
}

func NewDiary(sessions *SessionManager, entries *EntryService, admins *AdminResolver, logger *logrus.Logger) *Diary {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Diary{
		Sessions: sessions,
		Entries:  entries,
		Admins:   admins,
		Logger:   logger,
		changed:  make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	d.sub = sessions.Subscribe(d.onSession)
	return d
}

// View returns the current snapshot.
func (d *Diary) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot()
}

// Bootstrap loads the persisted session. With a session it resolves the admin
// flag and lists day (today when day is zero).
func (d *Diary) Bootstrap(ctx context.Context, day Day) (View, error) {
	start := d.generation()
	sess, err := d.Sessions.Bootstrap(ctx)
	if err != nil {
		return d.View(), err
	}
	if day.IsZero() {
		day = d.Entries.Today()
	}
	v := View{Session: sess, Day: day}
	var loadErr error
	if sess != nil {
		v.IsAdmin = d.Admins.ResolveIsAdmin(ctx, sess.UserID)
		v.Entries, loadErr = d.Entries.ListForDay(ctx, Actor{UserID: sess.UserID, IsAdmin: v.IsAdmin}, day)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// A transition that landed meanwhile is newer than what was loaded here.
	if d.gen == start {
		d.view = v
		d.loadErr = loadErr
	}
	return d.snapshot(), loadErr
}

// Login signs in and waits until the resulting SignedIn transition has been
// applied to the view.
func (d *Diary) Login(ctx context.Context, username, password string) (View, error) {
	start := d.generation()
	if err := d.Sessions.Login(ctx, username, password); err != nil {
		return d.View(), err
	}
	return d.await(ctx, start, View.Authenticated)
}

// Logout signs out and waits until the view is cleared. Without a session it
// returns at once.
func (d *Diary) Logout(ctx context.Context) (View, error) {
	if !d.View().Authenticated() {
		return d.View(), nil
	}
	start := d.generation()
	if err := d.Sessions.Logout(ctx); err != nil {
		return d.View(), err
	}
	return d.await(ctx, start, func(v View) bool { return !v.Authenticated() })
}

// SelectDay makes day the selected day and lists it.
func (d *Diary) SelectDay(ctx context.Context, day Day) (View, error) {
	actor, err := d.actor()
	if err != nil {
		return d.View(), err
	}
	entries, err := d.Entries.ListForDay(ctx, actor, day)
	if err != nil {
		return d.View(), err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.view.Session != nil && d.view.Session.UserID == actor.UserID {
		d.view.Day = day
		d.view.Entries = entries
		d.loadErr = nil
	}
	return d.snapshot(), nil
}

func (d *Diary) Create(ctx context.Context, content string) (View, error) {
	actor, err := d.actor()
	if err != nil {
		return d.View(), err
	}
	if _, err := d.Entries.Create(ctx, actor, content); err != nil {
		return d.View(), err
	}
	return d.reload(ctx)
}

func (d *Diary) Update(ctx context.Context, id, content string) (View, error) {
	actor, err := d.actor()
	if err != nil {
		return d.View(), err
	}
	if _, err := d.Entries.Update(ctx, actor, id, content); err != nil {
		return d.View(), err
	}
	return d.reload(ctx)
}

func (d *Diary) Delete(ctx context.Context, id string) (View, error) {
	actor, err := d.actor()
	if err != nil {
		return d.View(), err
	}
	if err := d.Entries.Delete(ctx, actor, id); err != nil {
		return d.View(), err
	}
	return d.reload(ctx)
}

func (d *Diary) Search(ctx context.Context, query string, size int) ([]entity.Entry, error) {
	actor, err := d.actor()
	if err != nil {
		return nil, err
	}
	return d.Entries.Search(ctx, actor, query, size)
}

// ExportDay exports day, or the selected day when day is zero.
func (d *Diary) ExportDay(ctx context.Context, day Day) (string, error) {
	actor, err := d.actor()
	if err != nil {
		return "", err
	}
	if day.IsZero() {
		day = d.View().Day
	}
	return d.Entries.ExportDay(ctx, actor, day)
}

// Close stops reacting to session transitions. Safe to call more than once.
func (d *Diary) Close() {
	d.closeOnce.Do(func() {
		d.sub.Unsubscribe()
		d.cancel()
	})
}

func (d *Diary) onSession(ev entity.SessionEvent) {
	log := d.Logger.WithField("transition", ev.Kind)
	switch ev.Kind {
	case entity.SessionSignedIn:
		sess := ev.Session
		isAdmin := d.Admins.ResolveIsAdmin(d.ctx, sess.UserID)
		day := d.Entries.Today()
		entries, err := d.Entries.ListForDay(d.ctx, Actor{UserID: sess.UserID, IsAdmin: isAdmin}, day)
		if err != nil {
			log.WithError(err).Warn("loading today after sign in failed")
		}
		d.commit(func(v *View) {
			*v = View{Session: sess, IsAdmin: isAdmin, Day: day, Entries: entries}
		}, err)
	case entity.SessionTokenRefreshed:
		d.commit(func(v *View) { v.Session = ev.Session }, nil)
	case entity.SessionSignedOut:
		d.commit(func(v *View) { *v = View{} }, nil)
	}
	log.Debug("view updated")
}

// commit applies fn to the view and wakes anyone waiting in await.
func (d *Diary) commit(fn func(*View), loadErr error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.view)
	d.loadErr = loadErr
	d.gen++
	close(d.changed)
	d.changed = make(chan struct{})
}

// await blocks until a transition newer than after has produced a view
// satisfying ok, or ctx is done.
func (d *Diary) await(ctx context.Context, after uint64, ok func(View) bool) (View, error) {
	for {
		d.mu.Lock()
		if d.gen > after && ok(d.view) {
			v, err := d.snapshot(), d.loadErr
			d.mu.Unlock()
			return v, err
		}
		ch := d.changed
		d.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return d.View(), ctx.Err()
		}
	}
}

func (d *Diary) reload(ctx context.Context) (View, error) {
	d.mu.Lock()
	day := d.view.Day
	d.mu.Unlock()
	if day.IsZero() {
		day = d.Entries.Today()
	}
	return d.SelectDay(ctx, day)
}

func (d *Diary) actor() (Actor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.view.Session == nil {
		return Actor{}, ErrNotAuthenticated
	}
	return Actor{UserID: d.view.Session.UserID, IsAdmin: d.view.IsAdmin}, nil
}

func (d *Diary) generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// snapshot copies the view. Callers hold d.mu.
func (d *Diary) snapshot() View {
	v := d.view
	v.Session = copySession(v.Session)
	if v.Entries != nil {
		v.Entries = append([]entity.Entry(nil), v.Entries...)
	}
	return v
}
