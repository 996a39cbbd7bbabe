package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/fitly/tryon/pkg/garment"
	"github.com/fitly/tryon/pkg/photo"
	"github.com/go-chi/chi/v5"
)

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.session.View())
}

func (a *API) reset(w http.ResponseWriter, r *http.Request) {
	a.session.Reset()
	writeJSON(w, http.StatusOK, a.session.View())
}

func (a *API) setMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	mode, err := garment.ParseMode(body.Mode)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}
	a.session.SetMode(mode)
	writeJSON(w, http.StatusOK, a.session.View())
}

func (a *API) setActiveSlot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Slot string `json:"slot"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	slot, err := garment.ParseSlot(body.Slot)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_slot", err.Error())
		return
	}
	a.session.SetActiveSlot(slot)
	writeJSON(w, http.StatusOK, a.session.View())
}

func (a *API) selectProduct(w http.ResponseWriter, r *http.Request) {
	var p garment.Product
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if p.ID == "" || p.ImageURL == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_product", "product id and image_url are required")
		return
	}
	a.session.SelectProduct(p)
	writeJSON(w, http.StatusOK, a.session.View())
}

func (a *API) clearSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := garment.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_slot", err.Error())
		return
	}
	a.session.ClearSlot(slot)
	writeJSON(w, http.StatusOK, a.session.View())
}

// uploadPhoto accepts multipart field "photo". The photo is decoded in the
// background and the response is 202; with ?wait=1 it waits for decoding.
func (a *API) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "photo_too_large", err.Error())
			return
		}
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	files := r.MultipartForm.File["photo"]
	if len(files) == 0 {
		writeError(w, r, http.StatusBadRequest, "missing_photo", `multipart field "photo" is required`)
		return
	}

	// The form's temp files are removed when the handler returns, so decode
	// from a buffered copy.
	upload := photo.UploadFromFileHeader(files[0])
	f, err := upload.Open()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "photo_read_failed", err.Error())
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, a.maxPhotoSize+1))
	f.Close()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "photo_read_failed", err.Error())
		return
	}
	upload.Open = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	done, err := a.session.AcceptPhoto(upload)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}

	if r.URL.Query().Get("wait") == "" {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "decoding"})
		return
	}
	if err := <-done; err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.session.View())
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Origin string `json:"origin"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}
	if err := a.session.Submit(r.Context(), body.Origin); err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, a.session.View())
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.session.Hub().Current())
}

func (a *API) dismiss(w http.ResponseWriter, r *http.Request) {
	if !a.session.Hub().Dismiss() {
		writeError(w, r, http.StatusConflict, "task_in_progress", "cannot dismiss while a task is processing")
		return
	}
	writeJSON(w, http.StatusOK, a.session.Hub().Current())
}

func (a *API) listHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": a.session.History().Entries()})
}

func (a *API) getHistory(w http.ResponseWriter, r *http.Request) {
	e, ok := a.session.History().Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "not_found", "history entry not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) replay(w http.ResponseWriter, r *http.Request) {
	if _, err := a.session.Replay(chi.URLParam(r, "id")); err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.session.View())
}
