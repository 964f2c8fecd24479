package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"nanobanana/internal/domain"
	"nanobanana/internal/workflow"
)

// multipart bookkeeping on top of the image itself
const uploadOverhead = 1 << 20

// Upload accepts the multipart "image" field from the picker or a drop.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "missing session")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.intake.MaxBytes()+uploadOverhead)
	img, readErr := a.readUpload(r)
	if readErr != nil {
		a.logger(r).Info().Err(readErr).Msg("upload rejected")
	}

	st, err := a.svc.Update(r.Context(), id, func(st *workflow.State) error {
		if readErr != nil {
			st.RejectUpload(readErr)
			return readErr
		}
		st.Upload(img)
		return nil
	})
	a.finish(w, r, id, st, err, http.StatusOK)
}

func (a *App) readUpload(r *http.Request) (*domain.SelectedImage, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, domain.ErrImageTooLarge
		}
		return nil, domain.ErrNotImage
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("image")
	if err != nil {
		return nil, domain.ErrNotImage
	}
	defer file.Close()
	return a.intake.Accept(r.Context(), hdr.Filename, hdr.Header.Get("Content-Type"), file)
}

func (a *App) Remove(w http.ResponseWriter, r *http.Request) {
	a.update(w, r, func(st *workflow.State) error {
		st.Remove()
		return nil
	})
}

// parseForm answers 400 for bodies that do not decode.
func (a *App) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		a.logger(r).Debug().Err(err).Msg("malformed form body")
		a.error(w, http.StatusBadRequest, "bad_request", "malformed form body")
		return false
	}
	return true
}

func (a *App) SelectStyle(w http.ResponseWriter, r *http.Request) {
	if !a.parseForm(w, r) {
		return
	}
	name := r.PostFormValue("style")
	a.update(w, r, func(st *workflow.State) error {
		return st.SelectStyle(name)
	})
}

// SetMode handles the custom prompt switch ("custom" = true/false).
func (a *App) SetMode(w http.ResponseWriter, r *http.Request) {
	if !a.parseForm(w, r) {
		return
	}
	raw := r.PostFormValue("custom")
	if raw == "" {
		raw = r.PostFormValue("mode")
	}
	a.update(w, r, func(st *workflow.State) error {
		mode, err := domain.ParseMode(raw)
		if err != nil {
			return err
		}
		return st.SetMode(mode)
	})
}

func (a *App) SetPrompt(w http.ResponseWriter, r *http.Request) {
	if !a.parseForm(w, r) {
		return
	}
	text := r.PostFormValue("prompt")
	a.update(w, r, func(st *workflow.State) error {
		st.SetPrompt(text)
		return nil
	})
}

func (a *App) DismissError(w http.ResponseWriter, r *http.Request) {
	a.update(w, r, func(st *workflow.State) error {
		st.DismissError()
		return nil
	})
}

// Transform applies the style or prompt posted with the button, then starts
// the transform. The outcome arrives later over /events.
func (a *App) Transform(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "missing session")
		return
	}
	if !a.parseForm(w, r) {
		return
	}
	_, hasPrompt := r.PostForm["prompt"]
	style := r.PostForm.Get("style")
	if hasPrompt || style != "" {
		st, err := a.svc.Update(r.Context(), id, func(st *workflow.State) error {
			if st.InFlight {
				return domain.ErrInFlight
			}
			if hasPrompt {
				st.SetPrompt(r.PostForm.Get("prompt"))
			}
			if style != "" {
				return st.SelectStyle(style)
			}
			return nil
		})
		if err != nil {
			a.finish(w, r, id, st, err, http.StatusOK)
			return
		}
	}

	st, err := a.svc.Submit(r.Context(), id)
	if err == nil {
		a.logger(r).Info().Uint64("epoch", st.Epoch).Msg("transform submitted")
	}
	a.finish(w, r, id, st, err, http.StatusAccepted)
}

// Download streams the stored result; the backend is not contacted.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "missing session")
		return
	}
	st, err := a.svc.View(r.Context(), id)
	if err != nil {
		a.logger(r).Error().Err(err).Msg("load session for download")
		a.error(w, http.StatusInternalServerError, "internal", "session unavailable")
		return
	}
	result, err := st.Download()
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", a.translator(r).T(domain.UserMessage(err)))
		return
	}
	data, err := result.Bytes()
	if err != nil {
		a.logger(r).Error().Err(err).Msg("decode stored result")
		a.error(w, http.StatusInternalServerError, "internal", "stored image is corrupt")
		return
	}
	w.Header().Set("Content-Type", result.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename(a.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (a *App) update(w http.ResponseWriter, r *http.Request, fn func(*workflow.State) error) {
	id, ok := sessionID(r)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "missing session")
		return
	}
	st, err := a.svc.Update(r.Context(), id, fn)
	a.finish(w, r, id, st, err, http.StatusOK)
}
