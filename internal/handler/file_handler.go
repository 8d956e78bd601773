package handler

import (
	"net/http"
	"strings"

	"livechat/internal/app/media"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/req"
	"livechat/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for generating upload URL.
type PresignUploadInput struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// HandlePresignMediaURL creates an HTTP HandlerFunc that returns a time-limited
// upload URL for an image together with the public URL it will have.
func HandlePresignMediaURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.StorageService == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrMediaDisabled))
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := media.ValidateFileSize(input.FileSize); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := media.ValidateFileType(input.FileName, input.MimeType); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		fileKey := media.NewKey(input.FileName)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			strings.ToLower(input.MimeType),
			input.FileSize,
			media.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		data := map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"url":          deps.StorageService.PublicURL(fileKey),
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleUploadMedia creates an HTTP HandlerFunc that stores an image sent as
// the multipart field "file" and returns its public URL.
func HandleUploadMedia(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.StorageService == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrMediaDisabled))
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		defer file.Close()

		mimeType := strings.ToLower(header.Header.Get("Content-Type"))

		if err := media.ValidateFileSize(header.Size); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := media.ValidateFileType(header.Filename, mimeType); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		fileKey := media.NewKey(header.Filename)

		if err := deps.StorageService.Upload(r.Context(), fileKey, mimeType, file); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		logx.Info("Media uploaded", "file_key", fileKey, "size", header.Size)

		data := map[string]any{
			"fileKey": fileKey,
			"url":     deps.StorageService.PublicURL(fileKey),
		}
		resp.RespondSuccess(w, r, data)
	}
}
