// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/crypto-tracker/internal/auth"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/watchlist"
	"github.com/labstack/echo/v4"
)

// ListHandlers serves the authenticated watchlist routes. Every handler
// expects RequireAuth to have stored the user id.
type ListHandlers struct {
	lists *watchlist.Service
}

// NewLists creates a new ListHandlers instance.
func NewLists(lists *watchlist.Service) *ListHandlers {
	return &ListHandlers{lists: lists}
}

type CreateListRequest struct {
	Name      string  `json:"list_name"`
	CryptoIDs []int64 `json:"crypto_ids"`
}

type AddToListRequest struct {
	CryptoIDs []int64 `json:"crypto_ids"`
	Note      string  `json:"note"`
}

type RenameListRequest struct {
	Name string `json:"list_name"`
}

type NoteRequest struct {
	Note string `json:"note"`
}

func (h *ListHandlers) Create(c echo.Context) error {
	userID, ok := auth.UserID(c.Request().Context())
	if !ok {
		return message(c, http.StatusUnauthorized, "error_no_token", nil)
	}

	var req CreateListRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}

	list, err := h.lists.Create(c.Request().Context(), userID, req.Name, req.CryptoIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, list)
}

func (h *ListHandlers) GetAll(c echo.Context) error {
	userID, ok := auth.UserID(c.Request().Context())
	if !ok {
		return message(c, http.StatusUnauthorized, "error_no_token", nil)
	}

	lists, err := h.lists.GetAll(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lists)
}

func (h *ListHandlers) Get(c echo.Context) error {
	userID, listID, ok := h.target(c)
	if !ok {
		return respondError(c, watchlist.ErrNotFound)
	}

	list, err := h.lists.Get(c.Request().Context(), listID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ListHandlers) AddMembers(c echo.Context) error {
	userID, listID, ok := h.target(c)
	if !ok {
		return respondError(c, watchlist.ErrNotFound)
	}

	var req AddToListRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}

	list, err := h.lists.AddMembers(c.Request().Context(), listID, userID, req.CryptoIDs, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ListHandlers) RemoveMember(c echo.Context) error {
	userID, listID, ok := h.target(c)
	if !ok {
		return respondError(c, watchlist.ErrNotFound)
	}
	cryptoID, ok := pathID(c, "cryptoId")
	if !ok {
		// An id that cannot be a member leaves the list as it is.
		list, err := h.lists.Get(c.Request().Context(), listID, userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}

	list, err := h.lists.RemoveMember(c.Request().Context(), listID, userID, cryptoID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ListHandlers) UpdateNote(c echo.Context) error {
	userID, listID, ok := h.target(c)
	if !ok {
		return respondError(c, watchlist.ErrNotFound)
	}
	cryptoID, ok := pathID(c, "cryptoId")
	if !ok {
		return respondError(c, watchlist.ErrNotMember)
	}

	var req NoteRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}

	list, err := h.lists.UpdateNote(c.Request().Context(), listID, userID, cryptoID, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ListHandlers) Rename(c echo.Context) error {
	userID, listID, ok := h.target(c)
	if !ok {
		return respondError(c, watchlist.ErrNotFound)
	}

	var req RenameListRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "error_bad_request", nil)
	}

	list, err := h.lists.Rename(c.Request().Context(), listID, userID, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ListHandlers) Delete(c echo.Context) error {
	userID, listID, ok := h.target(c)
	if !ok {
		return respondError(c, watchlist.ErrNotFound)
	}

	if err := h.lists.Delete(c.Request().Context(), listID, userID); err != nil {
		return respondError(c, err)
	}
	return message(c, http.StatusOK, "list_deleted", nil)
}

// target returns the caller and the listId path parameter. Unparseable ids
// are reported like missing lists.
func (h *ListHandlers) target(c echo.Context) (userID, listID int64, ok bool) {
	userID, ok = auth.UserID(c.Request().Context())
	if !ok {
		return 0, 0, false
	}
	listID, ok = pathID(c, "listId")
	return userID, listID, ok
}
