/*
Package media validates the images participants share and names them in the
object store.

A shared image travels through the chat as a plain message whose text is the
image's public URL. Keys keep the original extension so that URLs of animated
GIFs end in ".gif" and render as media rows.
*/
package media

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/randx"
)

const (
	// MaxFileSizeMB is the maximum allowed file size in megabytes.
	MaxFileSizeMB = 5

	// MaxFileSize is the maximum allowed file size in bytes.
	MaxFileSize = MaxFileSizeMB * 1024 * 1024

	// PresignedURLDuration is how long an upload URL stays valid.
	PresignedURLDuration = 5 * time.Minute

	// KeyPrefix is the object store folder for shared media.
	KeyPrefix = "media"
)

// AllowedMIMETypes defines the set of permitted MIME types for shared files.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// allowedList is the human-readable list used in error messages.
var allowedList = func() string {
	names := make([]string, 0, len(ExtToMIME))
	seen := make(map[string]struct{})
	for _, mime := range ExtToMIME {
		name := strings.ToUpper(strings.TrimPrefix(mime, "image/"))
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}()

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxFileSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxFileSizeMB)
	}

	return nil
}

// ValidateFileType checks that mimeType is an accepted image type and that
// the extension of fileName agrees with it.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrMediaTypeNotAllowed, allowedList)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrMediaTypeNotAllowed, allowedList)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrMediaTypeNotAllowed, allowedList)
	}

	return nil
}

// MIMEFromName returns the MIME type registered for the extension of fileName.
func MIMEFromName(fileName string) (string, bool) {
	mime, ok := ExtToMIME[strings.ToLower(filepath.Ext(fileName))]
	return mime, ok
}

// NewKey returns a fresh object key for fileName, e.g. media/<uuid>.gif.
// The extension is lower-cased; the rest of the original name is dropped.
func NewKey(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return path.Join(KeyPrefix, randx.ID()+ext)
}
