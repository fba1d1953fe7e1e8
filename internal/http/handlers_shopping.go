package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/shopping"
)

type createListRequest struct {
	Name string `json:"name"`
}

type addItemRequest struct {
	Name     string     `json:"name"`
	Quantity int64      `json:"quantity"`
	UnitCost core.Money `json:"unitCost"`
}

func (s *Server) handleListShoppingLists(w http.ResponseWriter, r *http.Request, user core.User) {
	lists, err := s.shopping.Lists(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if lists == nil {
		lists = []core.ShoppingList{}
	}
	writeJSON(w, http.StatusOK, lists)
}

func (s *Server) handleCreateShoppingList(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createListRequest
	if !decodeBody(w, r, &req) {
		return
	}
	list, err := s.shopping.CreateList(r.Context(), user.ID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

func (s *Server) handleDeleteShoppingList(w http.ResponseWriter, r *http.Request, user core.User) {
	if err := s.shopping.DeleteList(r.Context(), user.ID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddShoppingItem(w http.ResponseWriter, r *http.Request, user core.User) {
	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	list, err := s.shopping.AddItem(r.Context(), user.ID, r.PathValue("id"), shopping.ItemInput{
		Name:     req.Name,
		Quantity: req.Quantity,
		UnitCost: req.UnitCost,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleToggleShoppingItem(w http.ResponseWriter, r *http.Request, user core.User) {
	list, err := s.shopping.ToggleItem(r.Context(), user.ID, r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRemoveShoppingItem(w http.ResponseWriter, r *http.Request, user core.User) {
	list, err := s.shopping.RemoveItem(r.Context(), user.ID, r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCompleteShoppingList(w http.ResponseWriter, r *http.Request, user core.User) {
	list, err := s.shopping.CompleteList(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
