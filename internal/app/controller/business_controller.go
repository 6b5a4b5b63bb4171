package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nidaro/nidaro-backend/internal/app/service"
)

type BusinessController struct {
	businessService service.BusinessService
}

func NewBusinessController(businessService service.BusinessService) *BusinessController {
	return &BusinessController{businessService: businessService}
}

// Search
// GET /business?type=name|gstin|pan|mobile&value=...
func (ctrl *BusinessController) Search(c *gin.Context) {
	results, err := ctrl.businessService.Search(c.Query("type"), c.Query("value"))
	if err != nil {
		respondServiceError(c, err, "search business")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"businesses": results,
		"count":      len(results),
	})
}

// GetMine returns the caller's business
// GET /business/me
func (ctrl *BusinessController) GetMine(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	business, err := ctrl.businessService.GetByOwner(accountID)
	if err != nil {
		respondServiceError(c, err, "get business")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"business": business,
	})
}

// StartRefetch
// PATCH /business/refetch
func (ctrl *BusinessController) StartRefetch(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	challenge, err := ctrl.businessService.StartRefresh(c.Request.Context(), accountID)
	if err != nil {
		respondServiceError(c, err, "start business refetch")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Please solve the captcha to refresh your business details",
		"gstin":        challenge.GSTIN,
		"sessionId":    challenge.SessionID,
		"captchaImage": challenge.CaptchaImage,
		"expiresAt":    challenge.ExpiresAt,
	})
}

// CompleteRefetch
// POST /business/refetch/verify
func (ctrl *BusinessController) CompleteRefetch(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	var req CaptchaAnswerRequest
	if !bindJSON(c, &req) {
		return
	}

	business, err := ctrl.businessService.CompleteRefresh(c.Request.Context(), accountID, req.SessionID, req.CaptchaInput)
	if err != nil {
		respondServiceError(c, err, "complete business refetch")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Business details refreshed",
		"business": business,
	})
}
