package handler

import (
	"errors"
	"net/http"

	"delivops/internal/middleware"
	"delivops/internal/model"
	"delivops/pkg/apperror"
	"delivops/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// RegisterValidators adds the custom binding tags used by request DTOs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := model.ParseDate(fl.Field().String())
		return err == nil
	})
}

// respondError writes the status for a domain error. Anything else is logged
// and reported as an internal error without details.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	if appErr, ok := apperror.As(err); ok {
		status := apperror.HTTPStatus(err)
		c.JSON(status, response.Error(status, appErr.Message))
		return
	}
	log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("route", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
}

func invalidPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

// actorSub is the authenticated subject, empty when unauthenticated.
func actorSub(c *gin.Context) string {
	identity, _ := middleware.CurrentIdentity(c)
	return identity.Sub
}
