// Package repository backs the document-store interfaces with Bun. Set
// mutations (friends, requests, blocked, read receipts, reactions) are
// read-modify-write unions inside a transaction; across processes they
// keep the document store's last-write-wins semantics — there is no
// version or etag check on profile writes.
package repository

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	chat "github.com/hallwaychat/go-chat"
	"github.com/hallwaychat/go-chat/roster"
)

// Profiles persists profile records keyed by the vendor identity id.
// Identity ids must be UUID strings.
type Profiles struct {
	repository.Repository[*chat.Profile]
	db *bun.DB
}

var (
	_ chat.ProfileStore = (*Profiles)(nil)
	_ roster.Store      = (*Profiles)(nil)
)

// NewProfiles returns a profile repository over the given DB.
func NewProfiles(db *bun.DB) *Profiles {
	repo := repository.NewRepository[*chat.Profile](db, repository.ModelHandlers[*chat.Profile]{
		NewRecord: func() *chat.Profile { return &chat.Profile{} },
		GetID: func(p *chat.Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			id, err := uuid.Parse(p.ID)
			if err != nil {
				return uuid.Nil
			}
			return id
		},
		SetID: func(p *chat.Profile, id uuid.UUID) {
			if p != nil && p.ID == "" {
				p.ID = id.String()
			}
		},
	})

	return &Profiles{Repository: repo, db: db}
}

// Get implements chat.ProfileStore.
func (r *Profiles) Get(ctx context.Context, id string) (*chat.Profile, error) {
	record := &chat.Profile{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, chat.ErrProfileNotFound.WithMetadata(map[string]any{"id": id})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load profile")
	}

	return record, nil
}

// Create implements chat.ProfileStore.
func (r *Profiles) Create(ctx context.Context, profile *chat.Profile) error {
	prepareProfileDefaults(profile)

	if _, err := r.Repository.CreateTx(ctx, r.db, profile); err != nil {
		return errors.Wrap(err, errors.CategoryConflict, "could not create profile").
			WithMetadata(map[string]any{"id": profile.ID})
	}

	return nil
}

// Merge implements chat.ProfileStore: only the columns the patch names are
// written, everything else is preserved.
func (r *Profiles) Merge(ctx context.Context, id string, patch chat.ProfilePatch) error {
	if patch.IsZero() {
		return nil
	}

	q := r.db.NewUpdate().
		Model((*chat.Profile)(nil)).
		Where("?TableAlias.id = ?", id)

	if patch.DisplayName != nil {
		q = q.Set("display_name = ?", *patch.DisplayName)
	}
	if patch.PhotoURL != nil {
		q = q.Set("photo_url = ?", *patch.PhotoURL)
	}
	if patch.EmailVerified != nil {
		q = q.Set("email_verified = ?", *patch.EmailVerified)
	}
	if patch.LastLogin != nil {
		q = q.Set("last_login = ?", *patch.LastLogin)
	}
	if patch.LastActivity != nil {
		q = q.Set("last_activity = ?", *patch.LastActivity)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to merge profile")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return chat.ErrProfileNotFound.WithMetadata(map[string]any{"id": id})
	}

	return nil
}

// AddFriend implements roster.Store.
func (r *Profiles) AddFriend(ctx context.Context, id, friendID string) error {
	return r.updateSet(ctx, id, colFriends, friendID, true)
}

// RemoveFriend implements roster.Store.
func (r *Profiles) RemoveFriend(ctx context.Context, id, friendID string) error {
	return r.updateSet(ctx, id, colFriends, friendID, false)
}

// AddRequest implements roster.Store.
func (r *Profiles) AddRequest(ctx context.Context, id, fromID string) error {
	return r.updateSet(ctx, id, colRequests, fromID, true)
}

// RemoveRequest implements roster.Store.
func (r *Profiles) RemoveRequest(ctx context.Context, id, fromID string) error {
	return r.updateSet(ctx, id, colRequests, fromID, false)
}

// AddBlocked implements roster.Store.
func (r *Profiles) AddBlocked(ctx context.Context, id, blockedID string) error {
	return r.updateSet(ctx, id, colBlocked, blockedID, true)
}

// RemoveBlocked implements roster.Store.
func (r *Profiles) RemoveBlocked(ctx context.Context, id, blockedID string) error {
	return r.updateSet(ctx, id, colBlocked, blockedID, false)
}

const (
	colFriends  = "friends"
	colRequests = "friend_requests"
	colBlocked  = "blocked_users"
)

// updateSet applies a set-union or set-difference to one of the id-array
// columns. Re-applying the same operation is a no-op.
func (r *Profiles) updateSet(ctx context.Context, id, column, member string, add bool) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &chat.Profile{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return chat.ErrProfileNotFound.WithMetadata(map[string]any{"id": id})
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to load profile for set update")
		}

		var set *[]string
		switch column {
		case colFriends:
			set = &record.Friends
		case colRequests:
			set = &record.FriendRequests
		case colBlocked:
			set = &record.BlockedUsers
		default:
			return errors.New("unknown set column", errors.CategoryInternal).
				WithMetadata(map[string]any{"column": column})
		}

		updated, changed := applySetOp(*set, member, add)
		if !changed {
			return nil
		}
		*set = updated

		_, err = tx.NewUpdate().
			Model(record).
			Column(column).
			Where("?TableAlias.id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to write set update")
		}

		return nil
	})
}

func applySetOp(set []string, member string, add bool) ([]string, bool) {
	for i, existing := range set {
		if existing != member {
			continue
		}
		if add {
			return set, false
		}
		return append(set[:i:i], set[i+1:]...), true
	}

	if !add {
		return set, false
	}
	if set == nil {
		return []string{member}, true
	}
	return append(set, member), true
}

func prepareProfileDefaults(record *chat.Profile) {
	if record == nil {
		return
	}

	if record.Friends == nil {
		record.Friends = []string{}
	}
	if record.FriendRequests == nil {
		record.FriendRequests = []string{}
	}
	if record.BlockedUsers == nil {
		record.BlockedUsers = []string{}
	}
	if record.Settings.Theme == "" {
		record.Settings = chat.DefaultSettings()
	}
}
