// Package respond writes error bodies in the {"error": "..."} shape used by
// every handler.
package respond

import (
	"realestate-app/internal/apperr"
	"realestate-app/internal/logging"

	"github.com/gin-gonic/gin"
)

func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logging.FromContext(c.Request.Context()).Error("request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.JSON(apperr.HTTPStatus(kind), gin.H{"error": apperr.Message(err)})
}
