package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/settings"
)

type settingsPatchRequest struct {
	Theme                *string `json:"theme"`
	Currency             *string `json:"currency"`
	ReceiveNotifications *bool   `json:"receiveNotifications"`
}

type limitRequest struct {
	Limit core.Money `json:"limit"`
}

type customCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, user core.User) {
	us, err := s.settings.Get(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request, user core.User) {
	var req settingsPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	us, err := s.settings.Update(r.Context(), user.ID, settings.Patch{
		Theme:                req.Theme,
		Currency:             req.Currency,
		ReceiveNotifications: req.ReceiveNotifications,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

func (s *Server) handleSetCategoryLimit(w http.ResponseWriter, r *http.Request, user core.User) {
	var req limitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	us, err := s.settings.SetCategoryLimit(r.Context(), user.ID, core.Category(r.PathValue("category")), req.Limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

func (s *Server) handleRemoveCategoryLimit(w http.ResponseWriter, r *http.Request, user core.User) {
	us, err := s.settings.RemoveCategoryLimit(r.Context(), user.ID, core.Category(r.PathValue("category")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

func (s *Server) handleSetTotalLimit(w http.ResponseWriter, r *http.Request, user core.User) {
	var req limitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	us, err := s.settings.SetTotalLimit(r.Context(), user.ID, req.Limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

func (s *Server) handleAddCustomCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	var req customCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	us, err := s.settings.AddCustomCategory(r.Context(), user.ID, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, us)
}

func (s *Server) handleRemoveCustomCategory(w http.ResponseWriter, r *http.Request, user core.User) {
	us, err := s.settings.RemoveCustomCategory(r.Context(), user.ID, r.PathValue("name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}
