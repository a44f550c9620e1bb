package storage

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var imageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsAllowedImage reports whether both the mime type and the file extension
// belong to the avatar/logo allow-list.
func IsAllowedImage(mimeType, fileName string) bool {
	return imageTypes[MediaType(mimeType)] && imageExtensions[strings.ToLower(filepath.Ext(fileName))]
}

var (
	ErrNotAnImage = errors.New("file is not an allowed image")
	ErrTooLarge   = errors.New("file exceeds the size limit")
)

// SaveImage stores an avatar or logo in the public area. The file is removed
// again when it fails the image allow-list or exceeds maxSize.
func (s *LocalStore) SaveImage(fh *multipart.FileHeader, maxSize int64) (*StoredFile, error) {
	saved, err := s.Save(AreaPublic, fh)
	if err != nil {
		return nil, err
	}
	if !IsAllowedImage(saved.MimeType, saved.OriginalName) {
		s.Discard(saved.Path)
		return nil, ErrNotAnImage
	}
	if maxSize > 0 && saved.Size > maxSize {
		s.Discard(saved.Path)
		return nil, ErrTooLarge
	}
	return saved, nil
}
