package handlers

import (
	nethttp "net/http"

	"github.com/Potenup-community/backend-sub002/internal/domain/repository"
	"github.com/Potenup-community/backend-sub002/internal/domain/service"
	"github.com/Potenup-community/backend-sub002/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	reviews service.ResumeReviewService
	outbox  service.OutboxService
	store   repository.Store
}

func NewHandler(reviews service.ResumeReviewService, outbox service.OutboxService, store repository.Store) *Handler {
	return &Handler{
		reviews: reviews,
		outbox:  outbox,
		store:   store,
	}
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		response.RespondOK(c, nethttp.StatusServiceUnavailable, gin.H{"status": "down"}, nil)
		return
	}
	response.RespondOK(c, nethttp.StatusOK, gin.H{"status": "ok"}, nil)
}
