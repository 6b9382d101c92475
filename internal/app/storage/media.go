package storage

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"spiderlink/internal/pkg/errs"
	"spiderlink/internal/pkg/randx"
)

const (
	// MaxMediaSizeMB is the maximum allowed upload size in megabytes.
	MaxMediaSizeMB = 10

	// MaxMediaSize is the maximum allowed upload size in bytes.
	MaxMediaSize = MaxMediaSizeMB * 1024 * 1024

	// DownloadURLDuration is how long a /files redirect target stays valid.
	DownloadURLDuration = 15 * time.Minute

	KindImage = "image"
	KindVideo = "video"

	keyPrefix = "uploads/"
)

// AllowedMIMETypes maps each accepted content type to its media kind.
var AllowedMIMETypes = map[string]string{
	"image/jpeg": KindImage,
	"image/png":  KindImage,
	"image/webp": KindImage,
	"image/gif":  KindImage,
	"video/mp4":  KindVideo,
	"video/webm": KindVideo,
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxMediaSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	return nil
}

// DetectMedia checks the file name against the sniffed leading bytes and returns the
// content type and media kind. The extension and the content must agree.
func DetectMedia(fileName string, head []byte) (mimeType, kind string, cerr *errs.CustomError) {
	ext := strings.ToLower(filepath.Ext(fileName))

	expectedMIME, ok := ExtToMIME[ext]
	if !ok {
		return "", "", errs.NewError(errs.ErrFileTypeInvalid)
	}

	sniffed := strings.ToLower(http.DetectContentType(head))
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = strings.TrimSpace(sniffed[:i])
	}

	if sniffed != expectedMIME {
		return "", "", errs.NewError(errs.ErrFileTypeInvalid)
	}

	return expectedMIME, AllowedMIMETypes[expectedMIME], nil
}

// NewObjectKey returns a fresh key for an upload with the given extension.
func NewObjectKey(ext string) string {
	return keyPrefix + time.Now().UTC().Format("2006/01/") + randx.ID() + strings.ToLower(ext)
}

// IsObjectKey reports whether key has the shape produced by NewObjectKey.
func IsObjectKey(key string) bool {
	if !strings.HasPrefix(key, keyPrefix) || strings.Contains(key, "..") {
		return false
	}
	_, ok := ExtToMIME[strings.ToLower(filepath.Ext(key))]
	return ok
}
