package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"vote_zone/internal/common"
	"vote_zone/internal/domain/model"
	"vote_zone/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ObjectStore is the slice of object storage the service layer depends on.
// internal/platform/storage.GCSStore implements it.
type ObjectStore interface {
	SignedUploadURL(ctx context.Context, key, contentType string) (string, error)
	SignedDownloadURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// CleanupEnqueuer accepts object keys that are no longer referenced.
type CleanupEnqueuer interface {
	Enqueue(ctx context.Context, keys ...string) error
}

type FileService struct {
	store          ObjectStore // nil when no bucket is configured
	submissionRepo repository.SubmissionRepository
	maxUploadBytes int64
}

func NewFileService(store ObjectStore, subRepo repository.SubmissionRepository, maxUploadBytes int64) *FileService {
	return &FileService{store: store, submissionRepo: subRepo, maxUploadBytes: maxUploadBytes}
}

type UploadURLRequest struct {
	FileName string `json:"file_name" validate:"required,max=255"`
	FileType string `json:"file_type" validate:"required,max=255"`
	Size     int64  `json:"size" validate:"gte=0"`
}

type UploadURLResponse struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Key    string `json:"key"`
}

type DownloadURLRequest struct {
	Key string `json:"key" validate:"required,max=1024,objectkey"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

// ValidateFileReferences checks submission file metadata. Every storage key must sit under the
// caller's own upload prefix, the one CreateUploadURL hands out. It never touches storage.
func (s *FileService) ValidateFileReferences(caller *model.Caller, refs []model.FileReference) error {
	for i := range refs {
		if err := validate.Struct(refs[i]); err != nil {
			return fmt.Errorf("file_references[%d]: %w", i, validationError(err))
		}
		if refs[i].Downloadable() && (caller == nil || !strings.HasPrefix(refs[i].Key, userUploadPrefix(caller.UserID))) {
			return fmt.Errorf("file_references[%d]: key %q is not one of your uploads: %w",
				i, refs[i].Key, common.ErrValidation)
		}
		if s.maxUploadBytes > 0 && refs[i].Size > s.maxUploadBytes {
			return fmt.Errorf("file_references[%d]: size %d exceeds limit of %d bytes: %w",
				i, refs[i].Size, s.maxUploadBytes, common.ErrValidation)
		}
	}
	return nil
}

func (s *FileService) CreateUploadURL(ctx context.Context, caller *model.Caller, req UploadURLRequest) (*UploadURLResponse, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if s.maxUploadBytes > 0 && req.Size > s.maxUploadBytes {
		return nil, fmt.Errorf("file size %d exceeds limit of %d bytes: %w", req.Size, s.maxUploadBytes, common.ErrValidation)
	}
	if s.store == nil {
		return nil, fmt.Errorf("object storage is not configured: %w", common.ErrServiceUnavailable)
	}

	key := ObjectKey(caller.UserID, req.FileName)
	url, err := s.store.SignedUploadURL(ctx, key, req.FileType)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload URL: %w", err)
	}
	return &UploadURLResponse{URL: url, Method: "PUT", Key: key}, nil
}

// CreateDownloadURL signs a GET for key, but only for keys some submission actually references.
func (s *FileService) CreateDownloadURL(ctx context.Context, caller *model.Caller, req DownloadURLRequest) (*DownloadURLResponse, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if s.store == nil {
		return nil, fmt.Errorf("object storage is not configured: %w", common.ErrServiceUnavailable)
	}

	referenced, err := s.submissionRepo.FileKeyReferenced(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if !referenced {
		return nil, fmt.Errorf("file %s: %w", req.Key, common.ErrNotFound)
	}

	url, err := s.store.SignedDownloadURL(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create download URL: %w", err)
	}
	return &DownloadURLResponse{URL: url}, nil
}

// ObjectKey builds uploads/<userID>/<uuid>-<slugged base name><ext> for a client file name.
func ObjectKey(userID, fileName string) string {
	ext := path.Ext(fileName)
	base := slug.Make(strings.TrimSuffix(fileName, ext))
	if base == "" {
		base = "file"
	}
	if e := slug.Make(strings.TrimPrefix(ext, ".")); e != "" {
		ext = "." + e
	} else {
		ext = ""
	}
	return fmt.Sprintf("%s%s-%s%s", userUploadPrefix(userID), uuid.NewString(), base, ext)
}

func userUploadPrefix(userID string) string {
	return uploadsPrefix + userID + "/"
}
