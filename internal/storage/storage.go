package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Area string

const (
	// AreaDocuments holds uploaded documents and attachments; only streamed through the API.
	AreaDocuments Area = "documents"
	// AreaPublic holds avatars and logos served under PublicPrefix.
	AreaPublic Area = "public"

	PublicPrefix = "/uploads/"

	sniffLen = 512
)

var ErrFileNotFound = errors.New("file not found")

type StoredFile struct {
	Path         string
	FileName     string
	OriginalName string
	MimeType     string
	Size         int64
}

type LocalStore struct {
	root   string
	logger *slog.Logger
}

func NewLocalStore(root string, logger *slog.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	for _, area := range []Area{AreaDocuments, AreaPublic} {
		if err := os.MkdirAll(filepath.Join(abs, string(area)), 0o755); err != nil {
			return nil, fmt.Errorf("create storage area %s: %w", area, err)
		}
	}
	return &LocalStore{root: abs, logger: logger}, nil
}

// PublicDir is the directory served statically under PublicPrefix.
func (s *LocalStore) PublicDir() string {
	return filepath.Join(s.root, string(AreaPublic))
}

// MediaType strips parameters from a Content-Type value and lowercases it, so
// "Application/PDF; charset=binary" becomes "application/pdf".
func MediaType(contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// Save copies the uploaded part into the area under a fresh uuid name that keeps
// the original extension. The returned Path is relative to the store root.
func (s *LocalStore) Save(area Area, fh *multipart.FileHeader) (*StoredFile, error) {
	if fh == nil {
		return nil, errors.New("file header is nil")
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := uuid.NewString() + ext
	if area == AreaPublic {
		name = "img-" + name
	}
	rel := path.Join(string(area), name)
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mimeType := MediaType(fh.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = MediaType(http.DetectContentType(head))
	}

	dst, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, io.MultiReader(bytes.NewReader(head), src))
	if err != nil {
		os.Remove(full)
		return nil, fmt.Errorf("save file: %w", err)
	}

	return &StoredFile{
		Path:         rel,
		FileName:     name,
		OriginalName: filepath.Base(fh.Filename),
		MimeType:     mimeType,
		Size:         size,
	}, nil
}

func (s *LocalStore) Open(relPath string) (io.ReadCloser, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, ErrFileNotFound
	}
	return f, nil
}

// Remove deletes the stored file. A file that is already gone is not an error.
func (s *LocalStore) Remove(relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Discard is Remove for cleanup paths; failures are only logged.
func (s *LocalStore) Discard(relPath string) {
	if relPath == "" {
		return
	}
	if err := s.Remove(relPath); err != nil {
		s.logger.Warn("failed to remove stored file", "path", relPath, "error", err)
	}
}

func (s *LocalStore) PublicURL(fileName string) string {
	return PublicPrefix + fileName
}

// PathFromPublicURL maps a URL produced by PublicURL back to its store path.
func (s *LocalStore) PathFromPublicURL(url string) (string, bool) {
	name, ok := strings.CutPrefix(url, PublicPrefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return path.Join(string(AreaPublic), name), true
}

func (s *LocalStore) resolve(relPath string) (string, error) {
	if relPath == "" {
		return "", ErrFileNotFound
	}
	full := filepath.Join(s.root, filepath.FromSlash(relPath))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrFileNotFound
	}
	return full, nil
}
