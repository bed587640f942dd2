package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
	"github.com/fleveque/citysnap-gateway/internal/model"
)

// BuildingInfoBuilder is implemented by service.BuildingService.
type BuildingInfoBuilder interface {
	Build(ctx context.Context, req model.BuildingInfoRequest) (*model.BuildingInfoResponse, error)
}

// BuildingHandler serves the building-info endpoint.
type BuildingHandler struct {
	service BuildingInfoBuilder
	logger  *zap.Logger
}

func NewBuildingHandler(service BuildingInfoBuilder, logger *zap.Logger) *BuildingHandler {
	return &BuildingHandler{service: service, logger: logger}
}

// Info resolves an address, coordinates and/or photo into a building profile.
// Route: POST /api/v1/building/info
func (h *BuildingHandler) Info(c *gin.Context) {
	var req model.BuildingInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, apperr.Validation(bindingMessage(err)))
		return
	}
	if !req.HasLocation() {
		writeError(c, h.logger, apperr.Validation(
			"OpenStreetMap gateway requires either an address or coordinates to query OpenStreetMap APIs"))
		return
	}

	resp, err := h.service.Build(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bindingMessage turns validator failures into a readable detail.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		}
		return "invalid request: " + strings.Join(msgs, "; ")
	}
	return "invalid request body: " + err.Error()
}

// writeError renders err as {"error", "detail", "upstream_status"?}.
// Errors outside the apperr taxonomy are logged and hidden behind a generic detail.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok {
		logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  apperr.KindInternal.String(),
			"detail": "internal error",
		})
		return
	}

	status := e.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err), zap.Int("status", status))
	} else {
		logger.Info("request rejected", zap.String("detail", e.Message), zap.Int("status", status))
	}

	body := gin.H{
		"error":  e.Kind.String(),
		"detail": e.Error(),
	}
	if e.UpstreamStatus != 0 {
		body["upstream_status"] = e.UpstreamStatus
	}
	c.JSON(status, body)
}
