package application

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-diary/internal/domain/repository"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
	"github.com/oksasatya/go-ddd-diary/pkg/sanitize"
)

const (
	DefaultSearchSize = 10
	MaxSearchSize     = 50
)

// Actor is the signed-in user an entry operation runs on behalf of.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// CanMutate reports whether the actor may edit or delete e.
func (a Actor) CanMutate(e *entity.Entry) bool {
	return a.IsAdmin || (e != nil && e.UserID == a.UserID)
}

// ownerFilter is the store-side owner predicate: empty for admins.
func (a Actor) ownerFilter() string {
	if a.IsAdmin {
		return ""
	}
	return a.UserID
}

// EntryService reads and writes diary entries with owner-or-admin enforcement.
// Indexer, Exports and Activity are optional.
type EntryService struct {
	Repo      repo.EntryRepository
	Location  *time.Location
	Sanitizer *sanitize.Policy
	Indexer   EntryIndexer
	Exports   ExportStore
	Activity  ActivityPublisher
	Logger    *logrus.Logger
	Now       func() time.Time
}

func NewEntryService(r repo.EntryRepository, loc *time.Location, logger *logrus.Logger) *EntryService {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &EntryService{
		Repo:      r,
		Location:  loc,
		Sanitizer: sanitize.NewPolicy(),
		Logger:    logger,
		Now:       time.Now,
	}
}

// Today is the current calendar day in the diary's timezone.
func (s *EntryService) Today() Day {
	return DayOf(s.Now(), s.Location)
}

// ListForDay returns the entries created on day, oldest first. Non-admins
// only see their own entries.
func (s *EntryService) ListForDay(ctx context.Context, actor Actor, day Day) ([]entity.Entry, error) {
	if actor.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	from, to := day.Bounds(s.Location)
	entries, err := s.Repo.ListCreatedBetween(ctx, from, to, actor.ownerFilter())
	if err != nil {
		s.Logger.WithError(err).WithField("day", day.String()).Error("list entries failed")
		return nil, storeError("list entries", err)
	}
	if entries == nil {
		entries = []entity.Entry{}
	}
	return entries, nil
}

func (s *EntryService) Create(ctx context.Context, actor Actor, content string) (*entity.Entry, error) {
	if actor.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	clean, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}
	e := &entity.Entry{UserID: actor.UserID, Content: clean}
	if err := s.Repo.Create(ctx, e); err != nil {
		s.Logger.WithError(err).WithField("user_id", actor.UserID).Error("create entry failed")
		return nil, storeError("create entry", err)
	}
	s.index(ctx, *e)
	s.publish(ctx, entity.ActivityEntryCreated, actor, e.ID)
	return e, nil
}

func (s *EntryService) Update(ctx context.Context, actor Actor, id, content string) (*entity.Entry, error) {
	if actor.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	clean, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	e, err := s.Repo.UpdateContent(ctx, id, actor.ownerFilter(), clean)
	if err != nil {
		s.Logger.WithError(err).WithField("entry_id", id).Error("update entry failed")
		return nil, storeError("update entry", err)
	}
	s.index(ctx, *e)
	s.publish(ctx, entity.ActivityEntryUpdated, actor, id)
	return e, nil
}

func (s *EntryService) Delete(ctx context.Context, actor Actor, id string) error {
	if actor.UserID == "" {
		return ErrNotAuthenticated
	}
	if err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id, actor.ownerFilter()); err != nil {
		s.Logger.WithError(err).WithField("entry_id", id).Error("delete entry failed")
		return storeError("delete entry", err)
	}
	if s.Indexer != nil {
		if err := s.Indexer.Remove(ctx, id); err != nil {
			s.Logger.WithError(err).WithField("entry_id", id).Warn("remove entry from index failed")
		}
	}
	s.publish(ctx, entity.ActivityEntryDeleted, actor, id)
	return nil
}

// Search runs a full-text query over the index. Hits the actor may not see
// are dropped even if the index returned them.
func (s *EntryService) Search(ctx context.Context, actor Actor, query string, size int) ([]entity.Entry, error) {
	if actor.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	if s.Indexer == nil {
		return nil, ErrSearchDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Field: "q", Message: "cannot be empty"}
	}
	if size <= 0 {
		size = DefaultSearchSize
	}
	if size > MaxSearchSize {
		size = MaxSearchSize
	}
	hits, err := s.Indexer.Search(ctx, query, actor.ownerFilter(), size)
	if err != nil {
		s.Logger.WithError(err).Error("search entries failed")
		return nil, &StoreError{Op: "search entries", Err: err}
	}
	out := make([]entity.Entry, 0, len(hits))
	for i := range hits {
		if actor.CanMutate(&hits[i]) {
			out = append(out, hits[i])
		}
	}
	return out, nil
}

// DayExport is the document written by ExportDay.
type DayExport struct {
	Day        string         `json:"day"`
	Timezone   string         `json:"timezone"`
	ExportedAt time.Time      `json:"exported_at"`
	ExportedBy string         `json:"exported_by"`
	Entries    []entity.Entry `json:"entries"`
}

// ExportDay writes every entry of day to the export store and returns the
// object location. Admin only.
func (s *EntryService) ExportDay(ctx context.Context, actor Actor, day Day) (string, error) {
	if actor.UserID == "" {
		return "", ErrNotAuthenticated
	}
	if !actor.IsAdmin {
		return "", ErrForbidden
	}
	if s.Exports == nil {
		return "", ErrExportDisabled
	}
	entries, err := s.ListForDay(ctx, actor, day)
	if err != nil {
		return "", err
	}
	doc := DayExport{
		Day:        day.String(),
		Timezone:   s.Location.String(),
		ExportedAt: s.Now().UTC(),
		ExportedBy: actor.UserID,
		Entries:    entries,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	name := path.Join("exports", day.String(), uuid.NewString()+".json")
	loc, err := s.Exports.Put(ctx, name, "application/json", body)
	if err != nil {
		s.Logger.WithError(err).WithField("object", name).Error("export upload failed")
		return "", &StoreError{Op: "export day", Err: err}
	}
	s.Logger.WithFields(logrus.Fields{"day": doc.Day, "entries": len(entries), "location": loc}).Info("day exported")
	return loc, nil
}

func (s *EntryService) cleanContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", &ValidationError{Field: "content", Message: "cannot be empty"}
	}
	clean := s.Sanitizer.HTML(content)
	if sanitize.IsBlank(clean) {
		return "", &ValidationError{Field: "content", Message: "has no text after removing unsafe markup"}
	}
	return clean, nil
}

// authorize loads the entry and checks ownership before a mutation.
func (s *EntryService) authorize(ctx context.Context, actor Actor, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	e, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithError(err).WithField("entry_id", id).Error("load entry failed")
		}
		return storeError("load entry", err)
	}
	if !actor.CanMutate(e) {
		s.Logger.WithFields(logrus.Fields{"entry_id": id, "user_id": actor.UserID}).Warn("entry mutation denied")
		return ErrForbidden
	}
	return nil
}

func (s *EntryService) index(ctx context.Context, e entity.Entry) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.Index(ctx, e); err != nil {
		s.Logger.WithError(err).WithField("entry_id", e.ID).Warn("index entry failed")
	}
}

func (s *EntryService) publish(ctx context.Context, kind string, actor Actor, entryID string) {
	if s.Activity == nil {
		return
	}
	a := entity.Activity{Kind: kind, UserID: actor.UserID, EntryID: entryID, At: s.Now().UTC()}
	if err := s.Activity.Publish(ctx, a); err != nil {
		s.Logger.WithError(err).WithField("kind", kind).Warn("publish activity failed")
	}
}

// storeError maps repository errors onto the service's error taxonomy.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrEntryNotFound
	case errors.Is(err, repo.ErrAccessDenied):
		return &StoreError{Op: op, Err: ErrForbidden}
	default:
		return &StoreError{Op: op, Err: err}
	}
}
