package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/ai"
	"github.com/docsage/docsage/internal/pkg/errcode"
	appErr "github.com/docsage/docsage/internal/pkg/errors"
	"github.com/docsage/docsage/internal/pkg/response"
)

// handleError maps service errors onto stable API codes. Provider failures
// report the failure class, never the upstream response body.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	var provErr *ai.ProviderError
	if errors.As(err, &provErr) {
		code := errcode.ErrAIUnavailable
		switch provErr.Kind {
		case ai.KindRateLimited:
			code = errcode.ErrAIRateLimited
		case ai.KindQuotaExceeded:
			code = errcode.ErrAIQuotaExceeded
		case ai.KindAuthFailed:
			code = errcode.ErrAIAuthFailed
		}
		response.Error(c, code, provErr.Error())
		return
	}
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrFileTooLarge):
		response.Error(c, errcode.ErrFileTooLarge, err.Error())
	case errors.Is(err, appErr.ErrUnsupportedType):
		response.Error(c, errcode.ErrUnsupportedType, err.Error())
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
