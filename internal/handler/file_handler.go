package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"attachr/internal/domain"
	"attachr/internal/storage/local"
)

// FileHandler serves objects written by the local storage backend. Objects
// with a public ACL are served as-is; everything else needs a valid signature.
type FileHandler struct {
	storage *local.Storage
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(storage *local.Storage) *FileHandler {
	return &FileHandler{storage: storage}
}

// Serve handles GET /files/*key
func (h *FileHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	// Invalid keys are reported as missing.
	path, meta, err := h.storage.Stat(key)
	if err != nil {
		HandleError(c, domain.ErrNotFound)
		return
	}

	if !isPublic(meta.ACL) {
		err := h.storage.Verify(c.Request.Method, key, c.Query(local.ParamExpires), c.Query(local.ParamSignature))
		if err != nil {
			HandleError(c, err)
			return
		}
	}

	for name, value := range meta.Headers {
		c.Header(name, value)
	}
	c.File(path)
}

func isPublic(acl domain.ACL) bool {
	return acl == domain.ACLPublicRead || acl == domain.ACLPublicReadWrite
}
