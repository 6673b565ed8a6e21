package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/service"
)

// Uploads is the part of service.UploadService the upload endpoints use.
type Uploads interface {
	ProfilePicture(ctx context.Context, accountID uint64, f service.File) (string, error)
	CriminalRecord(ctx context.Context, accountID uint64, f service.File) (string, error)
	IdentityDocuments(ctx context.Context, accountID uint64, front, back service.File) (model.IdentityDocuments, error)
	GetIdentityDocuments(ctx context.Context, accountID uint64) (model.IdentityDocuments, error)
	WorkPhotos(ctx context.Context, professionalID uint64, files []service.File) ([]model.WorkPhoto, error)
	ListWorkPhotos(ctx context.Context, professionalID uint64) ([]model.WorkPhoto, error)
	DeleteWorkPhoto(ctx context.Context, professionalID uint64, filename string) error
}

// UploadHandler receives multipart uploads and hands the file contents to
// the upload service.
type UploadHandler struct {
	uploads Uploads
	// changed runs after an upload rewrote an account row, so cached
	// directory entries stop serving the old file URLs.
	changed func(ctx context.Context)
}

func NewUploadHandler(uploads Uploads, changed func(ctx context.Context)) *UploadHandler {
	if changed == nil {
		changed = func(context.Context) {}
	}
	return &UploadHandler{uploads: uploads, changed: changed}
}

type urlResp struct {
	URL string `json:"url"`
}

// readFile loads an uploaded part into memory, refusing parts larger than
// service.MaxUploadSize.
func readFile(fh *multipart.FileHeader, description string) (service.File, error) {
	if fh.Size > service.MaxUploadSize {
		return service.File{}, service.BadRequest(fmt.Sprintf("%s exceeds the 5 MiB limit", fh.Filename))
	}
	src, err := fh.Open()
	if err != nil {
		return service.File{}, service.Internal("open upload", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxUploadSize+1))
	if err != nil {
		return service.File{}, service.Internal("read upload", err)
	}
	if len(data) > service.MaxUploadSize {
		return service.File{}, service.BadRequest(fmt.Sprintf("%s exceeds the 5 MiB limit", fh.Filename))
	}
	if len(data) == 0 {
		return service.File{}, service.BadRequest(fmt.Sprintf("%s is empty", fh.Filename))
	}
	return service.File{Name: fh.Filename, Description: description, Data: data}, nil
}

// formFile reads the single file sent under field.
func formFile(c echo.Context, field string) (service.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return service.File{}, service.BadRequest(field + " is required")
		}
		return service.File{}, service.BadRequest("invalid multipart form")
	}
	return readFile(fh, c.FormValue("description"))
}

// ProfilePicture replaces the profile picture of account :id.
func (h *UploadHandler) ProfilePicture(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	f, err := formFile(c, "profile_picture")
	if err != nil {
		return err
	}
	url, err := h.uploads.ProfilePicture(c.Request().Context(), id, f)
	if err != nil {
		return err
	}
	h.changed(c.Request().Context())
	return c.JSON(http.StatusOK, urlResp{URL: url})
}

// CriminalRecord stores the criminal record PDF of account :id.
func (h *UploadHandler) CriminalRecord(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	f, err := formFile(c, "criminal_record")
	if err != nil {
		return err
	}
	url, err := h.uploads.CriminalRecord(c.Request().Context(), id, f)
	if err != nil {
		return err
	}
	h.changed(c.Request().Context())
	return c.JSON(http.StatusOK, urlResp{URL: url})
}

// IdentityDocuments stores both sides of the identity document of account :id.
func (h *UploadHandler) IdentityDocuments(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	front, err := formFile(c, "front_dni")
	if err != nil {
		return err
	}
	back, err := formFile(c, "back_dni")
	if err != nil {
		return err
	}
	docs, err := h.uploads.IdentityDocuments(c.Request().Context(), id, front, back)
	if err != nil {
		return err
	}
	h.changed(c.Request().Context())
	return c.JSON(http.StatusOK, docs)
}

func (h *UploadHandler) GetIdentityDocuments(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	docs, err := h.uploads.GetIdentityDocuments(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, docs)
}

// WorkPhotos adds portfolio photos for professional :id.
func (h *UploadHandler) WorkPhotos(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return service.BadRequest("invalid multipart form")
	}
	headers := form.File["work_photos"]
	if len(headers) == 0 {
		return service.BadRequest("work_photos is required")
	}
	if len(headers) > service.MaxWorkPhotos {
		return service.BadRequest(fmt.Sprintf("at most %d photos per upload", service.MaxWorkPhotos))
	}
	description := c.FormValue("description")
	files := make([]service.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh, description)
		if err != nil {
			return err
		}
		files = append(files, f)
	}
	photos, err := h.uploads.WorkPhotos(c.Request().Context(), id, files)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, photos)
}

func (h *UploadHandler) ListWorkPhotos(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	photos, err := h.uploads.ListWorkPhotos(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, photos)
}

// DeleteWorkPhoto removes photo :filename of professional :id.
func (h *UploadHandler) DeleteWorkPhoto(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	filename := c.Param("filename")
	if filename == "" {
		return service.BadRequest("invalid filename")
	}
	if err := h.uploads.DeleteWorkPhoto(c.Request().Context(), id, filename); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
