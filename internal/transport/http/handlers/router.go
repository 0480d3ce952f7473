package handlers

import "github.com/gin-gonic/gin"

type Router struct {
	handler *Handler
}

func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

func (r *Router) RegisterRoutes(engine *gin.Engine, idempotency gin.HandlerFunc) {
	engine.GET("/healthz", r.handler.health)

	api := engine.Group("/api")
	reviews := api.Group("/resume-reviews")
	reviews.POST("", idempotency, r.handler.requestReview)
	reviews.GET("", r.handler.listReviews)
	reviews.GET("/:id", r.handler.getReview)
	reviews.POST("/:id/complete", r.handler.completeReview)

	api.GET("/outbox-events", r.handler.listOutboxEvents)
}
