// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"github.com/vinovest/sqlx"
)

const selectListEntries = `
SELECT m.id, m.list_id, m.catalog_id, m.added_at, m.notes,
       c.name, c.symbol, c.image, c.current_price, c.market_cap,
       c.price_change_percentage_24h, c.total_volume
FROM list_members m
JOIN catalog_entries c ON c.id = m.catalog_id`

// CreateList inserts a list and its initial memberships atomically.
// A name already used by the owner yields ErrDuplicate.
func (r *Repository) CreateList(ctx context.Context, userID int64, name string, members []models.ListMember) (*models.List, error) {
	var listID int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO lists (user_id, list_name) VALUES (?, ?)`, userID, name)
		if err != nil {
			return err
		}
		if listID, err = res.LastInsertId(); err != nil {
			return err
		}
		_, err = insertMembers(ctx, tx, listID, members)
		return err
	})
	if err != nil {
		return nil, wrapError(err)
	}

	return r.GetListForOwner(ctx, listID, userID)
}

// GetListForOwner retrieves a list only if it belongs to userID. Missing and
// foreign lists both yield ErrNotFound.
func (r *Repository) GetListForOwner(ctx context.Context, listID, userID int64) (*models.List, error) {
	var list models.List
	err := r.db.GetContext(ctx, &list,
		`SELECT * FROM lists WHERE id = ? AND user_id = ?`, listID, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &list, nil
}

// GetListByName retrieves an owner's list by name.
func (r *Repository) GetListByName(ctx context.Context, userID int64, name string) (*models.List, error) {
	var list models.List
	err := r.db.GetContext(ctx, &list,
		`SELECT * FROM lists WHERE user_id = ? AND list_name = ?`, userID, name)
	if err != nil {
		return nil, wrapError(err)
	}
	return &list, nil
}

// GetListsByOwner returns all lists of a user, oldest first.
func (r *Repository) GetListsByOwner(ctx context.Context, userID int64) ([]models.List, error) {
	lists := []models.List{}
	err := r.db.SelectContext(ctx, &lists,
		`SELECT * FROM lists WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// RenameList overwrites the list name in place.
func (r *Repository) RenameList(ctx context.Context, listID, userID int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE lists SET list_name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?`,
		name, listID, userID)
	if err != nil {
		return wrapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteList removes a list and its memberships. Catalog entries are untouched.
func (r *Repository) DeleteList(ctx context.Context, listID, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM lists WHERE id = ? AND user_id = ?`, listID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetListMemberIDs returns the catalog IDs referenced by a list in insertion order.
func (r *Repository) GetListMemberIDs(ctx context.Context, listID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids,
		`SELECT catalog_id FROM list_members WHERE list_id = ? ORDER BY id`, listID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AddListMembers appends memberships, skipping references already present.
// Returns the number of rows actually inserted.
func (r *Repository) AddListMembers(ctx context.Context, listID int64, members []models.ListMember) (int64, error) {
	var added int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if added, err = insertMembers(ctx, tx, listID, members); err != nil {
			return err
		}
		return touchList(ctx, tx, listID)
	})
	return added, wrapError(err)
}

// RemoveListMember drops the membership for catalogID, if any.
func (r *Repository) RemoveListMember(ctx context.Context, listID, catalogID int64) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM list_members WHERE list_id = ? AND catalog_id = ?`, listID, catalogID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return touchList(ctx, tx, listID)
	})
}

// UpdateListMemberNote sets the free-text note of a membership.
func (r *Repository) UpdateListMemberNote(ctx context.Context, listID, catalogID int64, note string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE list_members SET notes = ? WHERE list_id = ? AND catalog_id = ?`, note, listID, catalogID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetListEntries resolves the memberships of the given lists against the
// catalog, keyed by list ID. Lists without members are absent from the map.
func (r *Repository) GetListEntries(ctx context.Context, listIDs ...int64) (map[int64][]models.ListEntry, error) {
	result := make(map[int64][]models.ListEntry, len(listIDs))
	if len(listIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(selectListEntries+` WHERE m.list_id IN (?) ORDER BY m.list_id, m.id`, listIDs)
	if err != nil {
		return nil, err
	}

	var entries []models.ListEntry
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	for _, e := range entries {
		result[e.ListID] = append(result[e.ListID], e)
	}
	return result, nil
}

func insertMembers(ctx context.Context, tx *sqlx.Tx, listID int64, members []models.ListMember) (int64, error) {
	var added int64
	for _, m := range members {
		addedAt := m.AddedAt
		if addedAt.IsZero() {
			addedAt = time.Now()
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO list_members (list_id, catalog_id, added_at, notes) VALUES (?, ?, ?, ?)
			 ON CONFLICT (list_id, catalog_id) DO NOTHING`,
			listID, m.CatalogID, addedAt.UTC(), m.Notes)
		if err != nil {
			return added, err
		}
		n, _ := res.RowsAffected()
		added += n
	}
	return added, nil
}

func touchList(ctx context.Context, tx *sqlx.Tx, listID int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE lists SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, listID)
	return err
}
