package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"ainastudio/pkg/domain"
	"ainastudio/pkg/onboarding"
	"ainastudio/pkg/storage"
	"ainastudio/services/studio/internal/app"
)

// multipart overhead allowed on top of the image payloads
const formOverhead = 1 << 20

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request, user domain.User) {
	st, err := s.app.Onboarding(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleOnboardingReset(w http.ResponseWriter, r *http.Request, user domain.User) {
	st, err := s.app.ResetOnboarding(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleBasicInfo(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req basicInfoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := s.app.SetBasicInfo(r.Context(), user.ID, req.BusinessName, domain.BusinessType(req.BusinessType), req.Address)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUploadLogo(w http.ResponseWriter, r *http.Request, user domain.User) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageBytes+formOverhead)
	if !parseForm(w, r, 8<<20) {
		return
	}
	defer r.MultipartForm.RemoveAll()
	fh := firstFile(r.MultipartForm, "file")
	if fh == nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	file, err := readFormFile(fh)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	st, err := s.app.UploadLogo(r.Context(), user.ID, file)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleClearLogo(w http.ResponseWriter, r *http.Request, user domain.User) {
	st, err := s.app.ClearLogo(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUploadPhotos(w http.ResponseWriter, r *http.Request, user domain.User) {
	r.Body = http.MaxBytesReader(w, r.Body, onboarding.MaxInspirationPhotos*storage.MaxImageBytes+formOverhead)
	if !parseForm(w, r, 16<<20) {
		return
	}
	defer r.MultipartForm.RemoveAll()
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "files are required (field: files)")
		return
	}
	files := make([]app.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readFormFile(fh)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		files = append(files, f)
	}
	st, added, err := s.app.UploadPhotos(r.Context(), user.ID, files)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, photosResponse{OnboardingState: st, Added: added})
}

func (s *Server) handleRemovePhoto(w http.ResponseWriter, r *http.Request, user domain.User) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be a number")
		return
	}
	st, err := s.app.RemovePhoto(r.Context(), user.ID, index)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAddKeyword(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req keywordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, added, err := s.app.AddKeyword(r.Context(), user.ID, req.Keyword)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keywordResponse{OnboardingState: st, Changed: added})
}

func (s *Server) handleRemoveKeyword(w http.ResponseWriter, r *http.Request, user domain.User) {
	st, removed, err := s.app.RemoveKeyword(r.Context(), user.ID, r.PathValue("keyword"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keywordResponse{OnboardingState: st, Changed: removed})
}

func (s *Server) handleTonePlatforms(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req tonePlatformsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	platforms := make([]domain.Platform, 0, len(req.Platforms))
	for _, p := range req.Platforms {
		platforms = append(platforms, domain.Platform(p))
	}
	st, err := s.app.SetTonePlatforms(r.Context(), user.ID, domain.Tone(req.Tone), platforms)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTogglePlatform(w http.ResponseWriter, r *http.Request, user domain.User) {
	st, err := s.app.TogglePlatform(r.Context(), user.ID, domain.Platform(r.PathValue("platform")))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStartCalibration(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req calibrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := s.app.StartCalibration(r.Context(), user.ID, req.Description)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

func (s *Server) handleSelectCandidate(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req selectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := s.app.SelectCandidate(r.Context(), user.ID, *req.Index)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleConfirmCalibration(w http.ResponseWriter, r *http.Request, user domain.User) {
	st, err := s.app.ConfirmCalibration(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request, user domain.User) {
	st, err := s.app.RegenerateCalibration(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request, user domain.User) {
	st, created, err := s.app.Continue(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if created != nil {
		s.audit(r, "studio.onboarding.complete", "success", "user_id", user.ID, "business_id", created.ID)
		writeJSON(w, http.StatusCreated, completedResponse{Business: *created, Next: "pricing", State: st})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req backRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := s.app.Back(r.Context(), user.ID, onboarding.Step(req.Step))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func parseForm(w http.ResponseWriter, r *http.Request, maxMemory int64) bool {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid form data")
		return false
	}
	return true
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil || len(form.File[field]) == 0 {
		return nil
	}
	return form.File[field][0]
}

func readFormFile(fh *multipart.FileHeader) (app.UploadFile, error) {
	if fh.Size > storage.MaxImageBytes {
		return app.UploadFile{}, fmt.Errorf("%s: %w", fh.Filename, storage.ErrFileTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return app.UploadFile{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxImageBytes+1))
	if err != nil {
		return app.UploadFile{}, err
	}
	return app.UploadFile{Name: fh.Filename, Data: data}, nil
}

type basicInfoRequest struct {
	BusinessName string `json:"businessName" validate:"required,max=120"`
	BusinessType string `json:"businessType" validate:"required"`
	Address      string `json:"address" validate:"max=300"`
}

type keywordRequest struct {
	Keyword string `json:"keyword" validate:"required"`
}

type tonePlatformsRequest struct {
	Tone      string   `json:"tone"`
	Platforms []string `json:"platforms"`
}

type calibrationRequest struct {
	Description string `json:"description" validate:"required,max=1000"`
}

type selectRequest struct {
	Index *int `json:"index" validate:"required"`
}

type backRequest struct {
	Step int `json:"step" validate:"required"`
}

type photosResponse struct {
	app.OnboardingState
	Added int `json:"added"`
}

type keywordResponse struct {
	app.OnboardingState
	Changed bool `json:"changed"`
}

type completedResponse struct {
	Business domain.Business     `json:"business"`
	Next     string              `json:"next"`
	State    app.OnboardingState `json:"state"`
}
