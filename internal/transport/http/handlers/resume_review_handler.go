package handlers

import (
	"errors"
	nethttp "net/http"
	"strconv"

	"github.com/Potenup-community/backend-sub002/internal/domain/repository"
	"github.com/Potenup-community/backend-sub002/internal/domain/service"
	"github.com/Potenup-community/backend-sub002/internal/transport/http/middleware"
	"github.com/Potenup-community/backend-sub002/internal/transport/http/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type requestReviewRequest struct {
	RequesterID string `json:"requester_id" binding:"required,uuid"`
	ResumeID    string `json:"resume_id" binding:"required,uuid"`
	Content     string `json:"content" binding:"required,max=20000"`
}

func (h *Handler) requestReview(c *gin.Context) {
	var req requestReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	idempotencyKey := c.GetString(middleware.IdempotencyKeyCtx)
	requestHash := c.GetString(middleware.IdempotencyHashCtx)

	review, replayed, err := h.reviews.Request(c.Request.Context(), service.RequestReview{
		RequesterID: uuid.MustParse(req.RequesterID),
		ResumeID:    uuid.MustParse(req.ResumeID),
		Content:     req.Content,
	}, idempotencyKey, requestHash)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrIdempotencyKeyConflict):
			response.RespondError(c, nethttp.StatusConflict, "idempotency_conflict", "idempotency key conflicts with request")
		case errors.Is(err, service.ErrInvalidReviewRequest):
			response.RespondError(c, nethttp.StatusBadRequest, "invalid_request", err.Error())
		default:
			_ = c.Error(err)
			response.RespondError(c, nethttp.StatusInternalServerError, "internal", "request review failed")
		}
		return
	}
	if replayed {
		response.RespondOK(c, nethttp.StatusOK, review, nil)
		return
	}
	response.RespondOK(c, nethttp.StatusCreated, review, nil)
}

type completeReviewRequest struct {
	Feedback string `json:"feedback" binding:"required"`
	Score    *int   `json:"score" binding:"omitempty,min=0,max=100"`
}

func (h *Handler) completeReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var req completeReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	review, err := h.reviews.Complete(c.Request.Context(), id, service.CompleteReview{Feedback: req.Feedback, Score: req.Score})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.RespondError(c, nethttp.StatusNotFound, "not_found", "not found")
		case errors.Is(err, service.ErrReviewAlreadyCompleted):
			response.RespondError(c, nethttp.StatusConflict, "already_completed", err.Error())
		case errors.Is(err, service.ErrInvalidReviewRequest):
			response.RespondError(c, nethttp.StatusBadRequest, "invalid_request", err.Error())
		default:
			_ = c.Error(err)
			response.RespondError(c, nethttp.StatusInternalServerError, "internal", "complete review failed")
		}
		return
	}
	response.RespondOK(c, nethttp.StatusOK, review, nil)
}

func (h *Handler) getReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	review, err := h.reviews.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.RespondError(c, nethttp.StatusNotFound, "not_found", "not found")
			return
		}
		_ = c.Error(err)
		response.RespondError(c, nethttp.StatusInternalServerError, "internal", "get review failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, review, nil)
}

func (h *Handler) listReviews(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	cursor := c.Query("cursor")

	reviews, nextCursor, err := h.reviews.List(c.Request.Context(), limit, cursor)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			response.RespondError(c, nethttp.StatusBadRequest, "invalid_cursor", "invalid cursor")
			return
		}
		_ = c.Error(err)
		response.RespondError(c, nethttp.StatusInternalServerError, "internal", "list failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, reviews, &response.Meta{NextCursor: nextCursor, Count: len(reviews)})
}
