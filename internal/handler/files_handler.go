package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
	"github.com/snackpdf/pdf-api/pkg/response"
	"github.com/snackpdf/pdf-api/pkg/storage"
)

// FilesHandler serves locally stored artifacts through signed URLs. Only
// mounted when the local storage backend is configured; S3 deployments hand
// out storage URLs directly.
type FilesHandler struct {
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
}

// NewFilesHandler constructs the handler.
func NewFilesHandler(store *storage.LocalStorage, signer *storage.SignedURLSigner) *FilesHandler {
	return &FilesHandler{store: store, signer: signer}
}

// Download godoc
// @Summary Download a processed artifact
// @Tags Files
// @Produce application/pdf
// @Param name path string true "Artifact name"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /files/{name} [get]
func (h *FilesHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download token required"))
		return
	}

	name, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}
	if name != c.Param("name") {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "token does not match file"))
		return
	}

	file, err := h.store.Open(name)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat file"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}
