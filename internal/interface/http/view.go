package handlers

import (
	"time"

	"github.com/oksasatya/go-ddd-diary/internal/application"
	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
)

// SessionDTO is the public part of a session. Tokens stay in cookies.
type SessionDTO struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EntryDTO struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AuthorEmail string    `json:"author_email,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CanEdit     bool      `json:"can_edit"`
}

type ViewDTO struct {
	Authenticated bool        `json:"authenticated"`
	Session       *SessionDTO `json:"session,omitempty"`
	IsAdmin       bool        `json:"is_admin"`
	Day           string      `json:"day,omitempty"`
	Entries       []EntryDTO  `json:"entries"`
}

func toView(v application.View) ViewDTO {
	out := ViewDTO{
		Authenticated: v.Authenticated(),
		IsAdmin:       v.IsAdmin,
		Entries:       []EntryDTO{},
	}
	if !v.Day.IsZero() {
		out.Day = v.Day.String()
	}
	if v.Session == nil {
		return out
	}
	out.Session = &SessionDTO{
		UserID:    v.Session.UserID,
		Email:     v.Session.Email,
		ExpiresAt: v.Session.AccessExpiresAt,
	}
	actor := application.Actor{UserID: v.Session.UserID, IsAdmin: v.IsAdmin}
	out.Entries = toEntries(v.Entries, actor)
	return out
}

func toEntries(entries []entity.Entry, actor application.Actor) []EntryDTO {
	out := make([]EntryDTO, 0, len(entries))
	for i := range entries {
		e := entries[i]
		out = append(out, EntryDTO{
			ID:          e.ID,
			UserID:      e.UserID,
			AuthorEmail: e.AuthorEmail,
			Content:     e.Content,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.UpdatedAt,
			CanEdit:     actor.CanMutate(&e),
		})
	}
	return out
}
