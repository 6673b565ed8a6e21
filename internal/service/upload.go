package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/repository"
	"github.com/iliyamo/trades-marketplace/internal/storage"
)

// Upload limits.
const (
	MaxUploadSize = 5 << 20
	MaxWorkPhotos = 10
)

var imageTypes = []string{"image/jpeg", "image/png", "image/gif"}

// FileStore saves uploaded files and removes them by URL.  It is satisfied
// by *storage.Disk.
type FileStore interface {
	Save(category, owner, name string, r io.Reader) (string, error)
	Remove(url string) error
}

// PhotoStore persists work photo metadata.  It is satisfied by
// *repository.PhotoRepo.
type PhotoStore interface {
	CreateBatch(ctx context.Context, photos []model.WorkPhoto) ([]model.WorkPhoto, error)
	ListByProfessional(ctx context.Context, professionalID uint64) ([]model.WorkPhoto, error)
	FindByFilename(ctx context.Context, professionalID uint64, filename string) (model.WorkPhoto, error)
	Delete(ctx context.Context, id uint64) error
}

// File is one uploaded file held in memory.
type File struct {
	Name        string
	Description string
	Data        []byte
}

// UploadService stores profile pictures, identity documents, criminal
// records and work photos.  File types are decided by content sniffing, not
// by the client supplied name or header.
type UploadService struct {
	accounts AccountStore
	photos   PhotoStore
	files    FileStore
	now      func() time.Time
}

func NewUploadService(accounts AccountStore, photos PhotoStore, files FileStore) *UploadService {
	return &UploadService{accounts: accounts, photos: photos, files: files, now: time.Now}
}

func (s *UploadService) load(ctx context.Context, id uint64) (model.Account, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, NotFound("user not found")
		}
		return model.Account{}, Internal("find account", err)
	}
	return acc, nil
}

// sniff checks size and content type and returns the extension to store
// the file under.
func sniff(f File, allowed []string, what string) (string, error) {
	if len(f.Data) == 0 {
		return "", BadRequest("no file was uploaded")
	}
	if len(f.Data) > MaxUploadSize {
		return "", BadRequest("file exceeds the 5 MiB limit")
	}
	mt := mimetype.Detect(f.Data)
	for _, a := range allowed {
		if mt.Is(a) {
			return mt.Extension(), nil
		}
	}
	return "", BadRequest("only " + what + " files are allowed")
}

func (s *UploadService) newName(ext string) string {
	return strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + uuid.NewString()[:8] + ext
}

// replace stores f, points *field at the new URL, saves the account and then
// drops the previous file.
func (s *UploadService) replace(ctx context.Context, acc *model.Account, field *string, category, owner, ext string, f File) (string, error) {
	url, err := s.files.Save(category, owner, s.newName(ext), bytes.NewReader(f.Data))
	if err != nil {
		return "", Internal("store file", err)
	}
	old := *field
	*field = url
	if err := s.accounts.Save(ctx, acc); err != nil {
		s.discard(ctx, url)
		return "", Internal("save account", err)
	}
	if old != "" {
		s.discard(ctx, old)
	}
	return url, nil
}

func (s *UploadService) discard(ctx context.Context, url string) {
	if err := s.files.Remove(url); err != nil {
		slog.WarnContext(ctx, "remove stored file failed", "url", url, "err", err)
	}
}

// ProfilePicture replaces an account's profile picture and returns its URL.
func (s *UploadService) ProfilePicture(ctx context.Context, accountID uint64, f File) (string, error) {
	ext, err := sniff(f, imageTypes, "jpg, png or gif image")
	if err != nil {
		return "", err
	}
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return "", err
	}
	return s.replace(ctx, &acc, &acc.ProfilePicture, storage.CategoryProfile, "", ext, f)
}

// CriminalRecord replaces an account's criminal record certificate.  Only
// PDF documents are accepted.
func (s *UploadService) CriminalRecord(ctx context.Context, accountID uint64, f File) (string, error) {
	ext, err := sniff(f, []string{"application/pdf"}, "PDF")
	if err != nil {
		return "", err
	}
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return "", err
	}
	return s.replace(ctx, &acc, &acc.CriminalRecord, storage.CategoryCriminalRecord, strconv.FormatUint(accountID, 10), ext, f)
}

// IdentityDocuments stores both sides of an identity document.  Both are
// required.
func (s *UploadService) IdentityDocuments(ctx context.Context, accountID uint64, front, back File) (model.IdentityDocuments, error) {
	if len(front.Data) == 0 || len(back.Data) == 0 {
		return model.IdentityDocuments{}, BadRequest("both the front and the back of the document are required")
	}
	frontExt, err := sniff(front, imageTypes, "jpg, png or gif image")
	if err != nil {
		return model.IdentityDocuments{}, err
	}
	backExt, err := sniff(back, imageTypes, "jpg, png or gif image")
	if err != nil {
		return model.IdentityDocuments{}, err
	}
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return model.IdentityDocuments{}, err
	}

	owner := strconv.FormatUint(accountID, 10)
	// unique per call so a replacement never lands on the file it replaces
	base := s.newName("")
	frontURL, err := s.files.Save(storage.CategoryDNI, owner, base+"-front"+frontExt, bytes.NewReader(front.Data))
	if err != nil {
		return model.IdentityDocuments{}, Internal("store front document", err)
	}
	backURL, err := s.files.Save(storage.CategoryDNI, owner, base+"-back"+backExt, bytes.NewReader(back.Data))
	if err != nil {
		s.discard(ctx, frontURL)
		return model.IdentityDocuments{}, Internal("store back document", err)
	}

	oldFront, oldBack := acc.FrontDNI, acc.BackDNI
	acc.FrontDNI, acc.BackDNI = frontURL, backURL
	if err := s.accounts.Save(ctx, &acc); err != nil {
		s.discard(ctx, frontURL)
		s.discard(ctx, backURL)
		return model.IdentityDocuments{}, Internal("save account", err)
	}
	for _, old := range []string{oldFront, oldBack} {
		if old != "" {
			s.discard(ctx, old)
		}
	}
	return model.IdentityDocuments{FrontDNI: frontURL, BackDNI: backURL}, nil
}

// GetIdentityDocuments returns the stored document URLs of an account.
func (s *UploadService) GetIdentityDocuments(ctx context.Context, accountID uint64) (model.IdentityDocuments, error) {
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return model.IdentityDocuments{}, err
	}
	return model.IdentityDocuments{FrontDNI: acc.FrontDNI, BackDNI: acc.BackDNI}, nil
}

// WorkPhotos stores up to MaxWorkPhotos images for a professional.  Either
// all of them are recorded or none.
func (s *UploadService) WorkPhotos(ctx context.Context, professionalID uint64, files []File) ([]model.WorkPhoto, error) {
	if len(files) == 0 {
		return nil, BadRequest("no files were uploaded")
	}
	if len(files) > MaxWorkPhotos {
		return nil, BadRequest("at most 10 photos can be uploaded at once")
	}
	exts := make([]string, len(files))
	for i, f := range files {
		ext, err := sniff(f, imageTypes, "jpg, png or gif image")
		if err != nil {
			return nil, err
		}
		exts[i] = ext
	}
	acc, err := s.load(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if !acc.Role.IsProfessional() {
		return nil, Forbidden("only professionals can upload work photos")
	}

	owner := strconv.FormatUint(professionalID, 10)
	photos := make([]model.WorkPhoto, 0, len(files))
	for i, f := range files {
		name := s.newName(exts[i])
		url, err := s.files.Save(storage.CategoryWork, owner, name, bytes.NewReader(f.Data))
		if err != nil {
			for _, p := range photos {
				s.discard(ctx, p.URL)
			}
			return nil, Internal("store work photo", err)
		}
		photos = append(photos, model.WorkPhoto{
			ProfessionalID: professionalID,
			Filename:       name,
			URL:            url,
			Description:    f.Description,
		})
	}

	saved, err := s.photos.CreateBatch(ctx, photos)
	if err != nil {
		for _, p := range photos {
			s.discard(ctx, p.URL)
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, Conflict("a work photo with that name already exists")
		}
		return nil, Internal("save work photos", err)
	}
	return saved, nil
}

// ListWorkPhotos returns a professional's photos.  An account without photos
// yields an empty list.
func (s *UploadService) ListWorkPhotos(ctx context.Context, professionalID uint64) ([]model.WorkPhoto, error) {
	list, err := s.photos.ListByProfessional(ctx, professionalID)
	if err != nil {
		return nil, Internal("list work photos", err)
	}
	return list, nil
}

// DeleteWorkPhoto removes a photo's row and its file.
func (s *UploadService) DeleteWorkPhoto(ctx context.Context, professionalID uint64, filename string) error {
	if filename == "" {
		return BadRequest("filename is required")
	}
	p, err := s.photos.FindByFilename(ctx, professionalID, filename)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("work photo not found")
		}
		return Internal("find work photo", err)
	}
	if err := s.photos.Delete(ctx, p.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Internal("delete work photo", err)
	}
	s.discard(ctx, p.URL)
	return nil
}
