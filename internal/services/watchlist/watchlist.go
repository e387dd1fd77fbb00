// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package watchlist manages user-owned lists of catalog entries.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/models"
	"codeberg.org/oliverandrich/crypto-tracker/internal/repository"
	"github.com/samber/lo"
)

var (
	ErrDuplicateName    = errors.New("list name already exists")
	ErrUnknownReference = errors.New("one or more cryptocurrencies not found")
	ErrNoNewMembers     = errors.New("all cryptocurrencies already in list")
	ErrNotFound         = errors.New("list not found")
	ErrInvalidInput     = errors.New("invalid input")

	ErrNameRequired = fmt.Errorf("%w: list name is required", ErrInvalidInput)
	ErrNoCatalogIDs = fmt.Errorf("%w: at least one cryptocurrency is required", ErrInvalidInput)
	ErrNotMember    = fmt.Errorf("%w: cryptocurrency is not in this list", ErrNotFound)
)

type Service struct {
	repo *repository.Repository
	now  func() time.Time
}

func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create makes a new list for ownerID holding the given catalog entries.
// Nothing is written unless every reference resolves.
func (s *Service) Create(ctx context.Context, ownerID int64, name string, catalogIDs []int64) (*models.ListDetail, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	if _, err := s.repo.GetListByName(ctx, ownerID, name); err == nil {
		return nil, ErrDuplicateName
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check list name: %w", err)
	}

	ids := lo.Uniq(catalogIDs)
	if err := s.resolve(ctx, ids); err != nil {
		return nil, err
	}

	now := s.now()
	list, err := s.repo.CreateList(ctx, ownerID, name, lo.Map(ids, func(id int64, _ int) models.ListMember {
		return models.ListMember{CatalogID: id, AddedAt: now}
	}))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	slog.Info("list_created", "list_id", list.ID, "user_id", ownerID, "members", len(ids))
	return s.detail(ctx, list)
}

// Rename changes the name of an owned list.
func (s *Service) Rename(ctx context.Context, listID, ownerID int64, name string) (*models.ListDetail, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	list, err := s.owned(ctx, listID, ownerID)
	if err != nil {
		return nil, err
	}
	if list.Name == name {
		return s.detail(ctx, list)
	}

	other, err := s.repo.GetListByName(ctx, ownerID, name)
	switch {
	case err == nil && other.ID != list.ID:
		return nil, ErrDuplicateName
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to check list name: %w", err)
	}

	if err := s.repo.RenameList(ctx, list.ID, ownerID, name); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to rename list: %w", err)
	}

	slog.Info("list_renamed", "list_id", list.ID, "user_id", ownerID)

	renamed, err := s.owned(ctx, list.ID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, renamed)
}

// AddMembers appends the catalog entries not yet in the list. The note, if
// any, is attached to each new membership.
func (s *Service) AddMembers(ctx context.Context, listID, ownerID int64, catalogIDs []int64, note string) (*models.ListDetail, error) {
	list, err := s.owned(ctx, listID, ownerID)
	if err != nil {
		return nil, err
	}

	ids := lo.Uniq(catalogIDs)
	if len(ids) == 0 {
		return nil, ErrNoCatalogIDs
	}
	if err := s.resolve(ctx, ids); err != nil {
		return nil, err
	}

	current, err := s.repo.GetListMemberIDs(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list members: %w", err)
	}

	fresh, _ := lo.Difference(ids, current)
	if len(fresh) == 0 {
		return nil, ErrNoNewMembers
	}

	now := s.now()
	note = strings.TrimSpace(note)
	added, err := s.repo.AddListMembers(ctx, list.ID, lo.Map(fresh, func(id int64, _ int) models.ListMember {
		return models.ListMember{CatalogID: id, AddedAt: now, Notes: note}
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to add list members: %w", err)
	}

	slog.Info("list_members_added", "list_id", list.ID, "user_id", ownerID, "added", added)
	return s.detail(ctx, list)
}

// RemoveMember drops catalogID from the list. Removing an absent member
// succeeds without changes.
func (s *Service) RemoveMember(ctx context.Context, listID, ownerID, catalogID int64) (*models.ListDetail, error) {
	list, err := s.owned(ctx, listID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RemoveListMember(ctx, list.ID, catalogID); err != nil {
		return nil, fmt.Errorf("failed to remove list member: %w", err)
	}

	slog.Info("list_member_removed", "list_id", list.ID, "user_id", ownerID, "crypto_id", catalogID)
	return s.detail(ctx, list)
}

// UpdateNote sets the note on an existing membership.
func (s *Service) UpdateNote(ctx context.Context, listID, ownerID, catalogID int64, note string) (*models.ListDetail, error) {
	list, err := s.owned(ctx, listID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateListMemberNote(ctx, list.ID, catalogID, strings.TrimSpace(note)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	return s.detail(ctx, list)
}

// Delete removes an owned list and its memberships.
func (s *Service) Delete(ctx context.Context, listID, ownerID int64) error {
	if err := s.repo.DeleteList(ctx, listID, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete list: %w", err)
	}

	slog.Info("list_deleted", "list_id", listID, "user_id", ownerID)
	return nil
}

// Get returns an owned list with its memberships resolved.
func (s *Service) Get(ctx context.Context, listID, ownerID int64) (*models.ListDetail, error) {
	list, err := s.owned(ctx, listID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, list)
}

// GetAll returns every list of ownerID with memberships resolved.
func (s *Service) GetAll(ctx context.Context, ownerID int64) ([]models.ListDetail, error) {
	lists, err := s.repo.GetListsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}

	entries, err := s.repo.GetListEntries(ctx, lo.Map(lists, func(l models.List, _ int) int64 { return l.ID })...)
	if err != nil {
		return nil, fmt.Errorf("failed to load list entries: %w", err)
	}

	return lo.Map(lists, func(l models.List, _ int) models.ListDetail {
		return models.ListDetail{List: l, Cryptos: nonNil(entries[l.ID])}
	}), nil
}

// owned loads the list only if ownerID owns it. Missing and foreign lists
// are indistinguishable.
func (s *Service) owned(ctx context.Context, listID, ownerID int64) (*models.List, error) {
	list, err := s.repo.GetListForOwner(ctx, listID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load list: %w", err)
	}
	return list, nil
}

// resolve checks that every (de-duplicated) id names a catalog entry.
func (s *Service) resolve(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.repo.GetCatalogEntriesByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog entries: %w", err)
	}
	if len(found) != len(ids) {
		return ErrUnknownReference
	}
	return nil
}

func (s *Service) detail(ctx context.Context, list *models.List) (*models.ListDetail, error) {
	entries, err := s.repo.GetListEntries(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list entries: %w", err)
	}
	return &models.ListDetail{List: *list, Cryptos: nonNil(entries[list.ID])}, nil
}

func nonNil(entries []models.ListEntry) []models.ListEntry {
	if entries == nil {
		return []models.ListEntry{}
	}
	return entries
}
