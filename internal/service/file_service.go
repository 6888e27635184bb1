package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/spotsapp/spots-api/internal/domain/repository"
	apperrors "github.com/spotsapp/spots-api/internal/pkg/errors"
)

// FileInput is a file sent inline by the client. URI is either an http(s) URL of a
// file that is already stored, or the base64 content, optionally as a data URI.
type FileInput struct {
	URI      string
	Filename string
	Mime     string
}

// IsEmpty reports whether no content was sent.
func (f FileInput) IsEmpty() bool {
	return strings.TrimSpace(f.URI) == ""
}

// ObjectKeyLayout prefixes every uploaded file name.
const ObjectKeyLayout = "2006-01-02 15:04:05"

// FileService stores client files in the object store. Every object lives under
// its owner's account id, and only the owner's objects are ever deleted.
type FileService struct {
	store  repository.ObjectStore
	tokens TokenService
	now    func() time.Time
	newID  func() string
	log    *zap.Logger
}

// NewFileService creates the file service. A nil clock means time.Now.
func NewFileService(store repository.ObjectStore, tokens TokenService, now func() time.Time, log *zap.Logger) (*FileService, error) {
	if store == nil {
		return nil, fmt.Errorf("ObjectStore is required for FileService")
	}
	if tokens == nil {
		return nil, fmt.Errorf("TokenService is required for FileService")
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileService{store: store, tokens: tokens, now: now, newID: uuid.NewString, log: log}, nil
}

// UploadFile stores a single file for a signed-in caller.
func (s *FileService) UploadFile(ctx context.Context, rawToken string, in FileInput) *FileResponse {
	const op = "uploadFile"

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return fileFailure(s.log, op, err)
	}
	if in.IsEmpty() {
		return fileFailure(s.log, op, apperrors.New(apperrors.ErrValidation, "file uri is required"))
	}

	url, err := s.Store(ctx, claims.ID, in)
	if err != nil {
		return fileFailure(s.log, op, err)
	}
	recordSuccess(op)
	return &FileResponse{URL: &url, Code: CodeOK, Message: "File uploaded successfully"}
}

// Store uploads in on behalf of owner and returns its public URL. http(s) URIs
// are returned as they are.
func (s *FileService) Store(ctx context.Context, owner string, in FileInput) (string, error) {
	uri := strings.TrimSpace(in.URI)
	if isRemoteURI(uri) {
		return uri, nil
	}
	if owner == "" {
		return "", fmt.Errorf("file owner is required")
	}

	name := path.Base(strings.TrimSpace(in.Filename))
	if name == "" || name == "." || name == "/" {
		return "", apperrors.New(apperrors.ErrValidation, "filename is required")
	}

	mime, body, err := decodeInline(uri)
	if err != nil {
		return "", err
	}
	if in.Mime != "" {
		mime = in.Mime
	}
	if mime == "" {
		mime = http.DetectContentType(body)
	}

	key := s.objectKey(owner, name)
	url, err := s.store.Upload(ctx, key, mime, body)
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", key, err)
	}
	s.log.Debug("file stored", zap.String("key", key), zap.Int("bytes", len(body)))
	return url, nil
}

// objectKey builds "<owner>/<id>/<timestamp> <name>".
func (s *FileService) objectKey(owner, name string) string {
	return owner + "/" + s.newID() + "/" + s.now().UTC().Format(ObjectKeyLayout) + " " + name
}

// DeleteURLs removes the objects behind urls that owner uploaded. URLs outside
// the store or under another owner are skipped; every failure is reported.
func (s *FileService) DeleteURLs(ctx context.Context, owner string, urls []string) error {
	if owner == "" {
		return nil
	}
	prefix := owner + "/"
	var errs error
	for _, u := range urls {
		key, ok := s.store.KeyFromURL(u)
		if !ok {
			continue
		}
		if !strings.HasPrefix(key, prefix) {
			s.log.Debug("skipping file of another owner", zap.String("key", key))
			continue
		}
		errs = multierr.Append(errs, s.store.Delete(ctx, key))
	}
	return errs
}

func isRemoteURI(uri string) bool {
	lower := strings.ToLower(uri)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// decodeInline accepts plain base64 or a "data:<mime>;base64,<payload>" URI.
func decodeInline(uri string) (string, []byte, error) {
	var mime string
	payload := uri
	if strings.HasPrefix(strings.ToLower(uri), "data:") {
		comma := strings.IndexByte(uri, ',')
		if comma < 0 {
			return "", nil, apperrors.New(apperrors.ErrValidation, "file data uri is malformed")
		}
		header := uri[len("data:"):comma]
		payload = uri[comma+1:]
		mime = strings.TrimSuffix(header, ";base64")
	}

	body, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		body, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil || len(body) == 0 {
		return "", nil, apperrors.New(apperrors.ErrValidation, "file content is not valid base64")
	}
	return mime, body, nil
}
