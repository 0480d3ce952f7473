package handlers

import (
	"errors"
	nethttp "net/http"
	"strconv"

	"github.com/Potenup-community/backend-sub002/internal/domain/service"
	"github.com/Potenup-community/backend-sub002/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

func (h *Handler) listOutboxEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.outbox.List(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOutboxStatus) {
			response.RespondError(c, nethttp.StatusBadRequest, "invalid_status", "status must be PENDING, PUBLISHED or FAILED")
			return
		}
		_ = c.Error(err)
		response.RespondError(c, nethttp.StatusInternalServerError, "internal", "list outbox events failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, events, &response.Meta{Count: len(events)})
}
