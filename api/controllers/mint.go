package controllers

import (
	"errors"
	"net/http"

	"github.com/nftennis/nftennis-backend/api/responses"
	"github.com/nftennis/nftennis-backend/api/validators"
	"github.com/nftennis/nftennis-backend/internal/mint"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
)

const (
	formFileField     = "file"
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
)

type mintUploadForm struct {
	Recipient   string `json:"recipient" validate:"required,eth_addr"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Rarity      string `json:"rarity" validate:"required"`
	MediaType   string `json:"mediaType"`
}

type mintUploadResponse struct {
	mintResponse
	FileCID     string `json:"fileCid"`
	MetadataCID string `json:"metadataCid"`
	MediaURL    string `json:"mediaUrl"`
	MetadataURL string `json:"metadataUrl"`
	MimeType    string `json:"mimeType"`
}

// MintUpload accepts a multipart form with the media file and token fields,
// pins both to IPFS and mints. The body is capped at maxBytes plus room for
// the text fields.
func MintUpload(pipeline mint.Pipeline, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pipeline == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mint pipeline unavailable"))
			return
		}
		caller, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file too large").
					WithDetails(map[string]any{"maxBytes": maxBytes}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		form := mintUploadForm{
			Recipient:   r.FormValue("recipient"),
			Name:        r.FormValue("name"),
			Description: r.FormValue("description"),
			Rarity:      r.FormValue("rarity"),
			MediaType:   r.FormValue("mediaType"),
		}
		file, header, err := r.FormFile(formFileField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "All fields are required").
				WithDetails(map[string]string{formFileField: "is required"}))
			return
		}
		defer file.Close()
		if err := validators.Struct(&form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if header.Size > maxBytes {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file too large").
				WithDetails(map[string]any{"maxBytes": maxBytes}))
			return
		}

		res, err := pipeline.Run(r.Context(), mint.Input{
			Caller:      caller,
			Recipient:   form.Recipient,
			Name:        form.Name,
			Description: form.Description,
			Rarity:      form.Rarity,
			MediaType:   form.MediaType,
			FileName:    header.Filename,
			File:        file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, mintUploadResponse{
			mintResponse: toMintResponse(res.Token),
			FileCID:      res.FileCID,
			MetadataCID:  res.MetadataCID,
			MediaURL:     res.MediaURL,
			MetadataURL:  res.MetadataURL,
			MimeType:     res.MimeType,
		})
	}
}
