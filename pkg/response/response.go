package response

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/slack-archv/internal/models"
	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
	"github.com/noah-isme/slack-archv/pkg/middleware/requestid"
)

// Envelope is the body of every browse API response.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response. The request id, when present, is added to meta.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	envelope.Meta = withRequestID(c, envelope.Meta)
	c.Header("Cache-Control", "no-store")
	c.JSON(status, envelope)
}

// Error converts err to the common error structure and writes it with the
// error's HTTP status.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(appErr.Status, Envelope{Error: appErr, Meta: withRequestID(c, nil)})
}

func withRequestID(c *gin.Context, meta map[string]interface{}) map[string]interface{} {
	id := requestid.Value(c)
	if id == "" {
		return meta
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["request_id"] = id
	return meta
}
