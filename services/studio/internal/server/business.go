package server

import (
	"net/http"
	"strconv"

	"ainastudio/pkg/domain"
	"ainastudio/pkg/store"
	"ainastudio/services/studio/internal/app"
)

// Template images may arrive inline as data URLs.
const maxTemplateBody = 8 << 20

func (s *Server) handleGetBusiness(w http.ResponseWriter, r *http.Request, user domain.User) {
	b, err := s.app.GetBusiness(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handlePatchBusiness(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req businessPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BusinessName != nil || req.BusinessType != nil {
		writeError(w, http.StatusBadRequest, "businessName and businessType cannot be changed")
		return
	}
	b, err := s.app.UpdateBusiness(r.Context(), user.ID, app.BusinessPatch{
		Address:           req.Address,
		LogoURL:           req.LogoURL,
		InspirationPhotos: req.InspirationPhotos,
		Keywords:          req.Keywords,
		Tone:              req.Tone,
		Platforms:         req.Platforms,
		PreferredStyle:    req.PreferredStyle,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBusiness(w http.ResponseWriter, r *http.Request, user domain.User) {
	if err := s.app.DeleteBusiness(r.Context(), user.ID); err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "studio.business.delete", "success", "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request, user domain.User) {
	q := r.URL.Query()
	filter := store.TemplateFilter{Category: q.Get("category")}
	if raw := q.Get("favorite"); raw != "" {
		fav, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "favorite must be true or false")
			return
		}
		filter.FavoriteOnly = fav
	}
	items, err := s.app.ListTemplates(r.Context(), user.ID, filter)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listTemplatesResponse{Items: items, Count: len(items)})
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req templateRequest
	if !decodeJSONLimit(w, r, &req, maxTemplateBody) {
		return
	}
	t, err := s.app.CreateTemplate(r.Context(), user.ID, app.TemplateInput{
		Name:        req.Name,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Text:        req.Text,
		Description: req.Description,
		Platform:    domain.Platform(req.Platform),
		Tone:        domain.Tone(req.Tone),
		Style:       req.Style,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request, user domain.User) {
	t, err := s.app.GetTemplate(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handlePatchTemplate(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req templatePatchRequest
	if !decodeJSONLimit(w, r, &req, maxTemplateBody) {
		return
	}
	t, err := s.app.UpdateTemplate(r.Context(), user.ID, r.PathValue("id"), app.TemplatePatch{
		Name:        req.Name,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Text:        req.Text,
		Description: req.Description,
		Platform:    req.Platform,
		Tone:        req.Tone,
		Style:       req.Style,
		Favorite:    req.Favorite,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request, user domain.User) {
	if err := s.app.DeleteTemplate(r.Context(), user.ID, r.PathValue("id")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request, user domain.User) {
	t, err := s.app.ToggleFavorite(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUseTemplate(w http.ResponseWriter, r *http.Request, user domain.User) {
	t, err := s.app.UseTemplate(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type businessPatchRequest struct {
	BusinessName      *string            `json:"businessName"`
	BusinessType      *string            `json:"businessType"`
	Address           *string            `json:"address" validate:"omitempty,max=300"`
	LogoURL           *string            `json:"logoUrl"`
	InspirationPhotos *[]string          `json:"inspirationPhotos"`
	Keywords          *[]string          `json:"keywords"`
	Tone              *domain.Tone       `json:"tone"`
	Platforms         *[]domain.Platform `json:"platforms"`
	PreferredStyle    *string            `json:"preferredStyle" validate:"omitempty,max=120"`
}

type templateRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Category    string `json:"category" validate:"max=60"`
	ImageURL    string `json:"imageUrl"`
	Text        string `json:"text" validate:"max=5000"`
	Description string `json:"description" validate:"max=1000"`
	Platform    string `json:"platform"`
	Tone        string `json:"tone"`
	Style       string `json:"style" validate:"max=120"`
}

type templatePatchRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=120"`
	Category    *string          `json:"category" validate:"omitempty,max=60"`
	ImageURL    *string          `json:"imageUrl"`
	Text        *string          `json:"text" validate:"omitempty,max=5000"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
	Platform    *domain.Platform `json:"platform"`
	Tone        *domain.Tone     `json:"tone"`
	Style       *string          `json:"style" validate:"omitempty,max=120"`
	Favorite    *bool            `json:"favorite"`
}

type listTemplatesResponse struct {
	Items []domain.Template `json:"items"`
	Count int               `json:"count"`
}
