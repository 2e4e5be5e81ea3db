package api

import (
	"errors"
	"net/http"

	"github.com/daftuyda/Igris/internal"
	"github.com/daftuyda/Igris/internal/auth"
	"github.com/daftuyda/Igris/internal/response"
	"github.com/gin-gonic/gin"
)

func HandleError(c *gin.Context, logger internal.Logger, err error, status int, msg string) {
	requestID := c.GetString("request_id")
	if status >= http.StatusInternalServerError {
		logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	} else {
		logger.Warnf("[request_id=%s] %s: %v", requestID, msg, err)
	}
	var resp response.APIResponse
	switch status {
	case http.StatusBadRequest:
		resp = response.BadRequest(msg + ": " + err.Error())
	case http.StatusForbidden:
		resp = response.Forbidden(msg)
	case http.StatusNotFound:
		resp = response.NotFound(msg)
	case http.StatusInternalServerError:
		resp = response.InternalError(msg)
	default:
		resp = response.NewAppError(status, msg+": "+err.Error())
	}
	c.AbortWithStatusJSON(status, resp)
}

// HandleServiceError picks the status from the error's sentinel.
func HandleServiceError(c *gin.Context, logger internal.Logger, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, internal.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, internal.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, internal.ErrNotFound):
		status = http.StatusNotFound
	}
	HandleError(c, logger, err, status, msg)
}

func HandleSuccess(c *gin.Context, logger internal.Logger, data interface{}, meta map[string]any) {
	respond(c, logger, http.StatusOK, data, meta)
}

func HandleCreated(c *gin.Context, logger internal.Logger, data interface{}) {
	respond(c, logger, http.StatusCreated, data, nil)
}

func respond(c *gin.Context, logger internal.Logger, status int, data interface{}, meta map[string]any) {
	logger.Debugf("[request_id=%s] %s %s -> %d", c.GetString("request_id"), c.Request.Method, c.FullPath(), status)
	c.JSON(status, response.Success(data, meta))
}

func currentUserID(c *gin.Context) string {
	return c.GetString(auth.UserIDKey)
}
