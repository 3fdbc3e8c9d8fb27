package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/lms-backend/internal/http/response"
	"github.com/yungbote/lms-backend/internal/services"
)

type RatingHandler struct {
	ratings services.RatingService
}

func NewRatingHandler(ratings services.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

type rateRequest struct {
	Rating int     `json:"rating" binding:"required,min=1,max=5"`
	Review *string `json:"review" binding:"omitempty,max=2000"`
}

// POST /courses/:id/ratings
func (h *RatingHandler) Rate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	r, err := h.ratings.Rate(c.Request.Context(), c.Param("id"), req.Rating, req.Review)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rating": r})
}

// GET /courses/:id/ratings
func (h *RatingHandler) List(c *gin.Context) {
	views, summary, err := h.ratings.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ratings": views, "summary": summary})
}
