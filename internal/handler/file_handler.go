package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"spiderlink/internal/app/storage"
	"spiderlink/internal/pkg/auth/jwt"
	"spiderlink/internal/pkg/errs"
	"spiderlink/internal/pkg/logx"
	"spiderlink/internal/pkg/req"
	"spiderlink/internal/pkg/resp"
)

// sniffLen is the number of leading bytes http.DetectContentType looks at.
const sniffLen = 512

// HandleUpload stores one image or video sent as the multipart field "file" and
// returns the URL to reference it by in a message.
func HandleUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUploadsDisabled))
			return
		}

		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		file, header, customErr := req.FormFile(w, r, "file")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		defer file.Close()

		if err := storage.ValidateFileSize(header.Size); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		head := make([]byte, sniffLen)
		n, err := io.ReadFull(file, head)
		if err != nil && err != io.ErrUnexpectedEOF {
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}

		mimeType, kind, customErr := storage.DetectMedia(header.Filename, head[:n])
		if customErr != nil {
			logx.Warn("upload rejected: file type", "user_id", payload.ID, "file_name", header.Filename)
			resp.RespondError(w, r, customErr)
			return
		}

		if _, err := file.Seek(0, io.SeekStart); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		key := storage.NewObjectKey(filepath.Ext(header.Filename))
		if err := deps.Storage.Upload(r.Context(), key, mimeType, file); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		url := deps.Storage.PublicURL(key)
		if url == "" {
			url = "/files/" + key
		}

		resp.RespondSuccess(w, r, map[string]any{
			"url":  url,
			"type": kind,
		})
	}
}

// HandleDownload redirects to a short-lived presigned URL for an uploaded file.
func HandleDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUploadsDisabled))
			return
		}

		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if !storage.IsObjectKey(key) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if public := deps.Storage.PublicURL(key); public != "" {
			http.Redirect(w, r, public, http.StatusFound)
			return
		}

		url, err := deps.Storage.PresignDownload(r.Context(), key, storage.DownloadURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
