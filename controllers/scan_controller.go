package controllers

import (
	"errors"
	"net/http"

	"github.com/vamshi726/food-scan-ai/config"
	"github.com/vamshi726/food-scan-ai/models"
	"github.com/vamshi726/food-scan-ai/services"
	"github.com/vamshi726/food-scan-ai/utils"

	"github.com/gin-gonic/gin"
)

const productNotFoundMessage = "Could not find product information. Please try uploading a photo of the nutrition label instead."

type AnalyzeInput struct {
	Barcode string `json:"barcode"`
	Image   string `json:"image"` // base64 data URL of a nutrition label
}

// AnalyzeProduct runs the capture-and-resolve pipeline for one scan:
// barcode -> resolver chain, or label photo -> vision extraction, then one
// AI analysis pass personalized by the caller's health preferences.
func AnalyzeProduct(c *gin.Context) {
	var input AnalyzeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if input.Barcode == "" && input.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode or image is required"})
		return
	}

	userID := c.GetUint("userID")
	ai := services.NewAIGatewayService()

	var (
		record   *services.NutritionRecord
		imageURL string
		err      error
	)

	if input.Barcode != "" {
		resolver := services.NewProductResolver(services.NewOpenFoodFactsService(), ai)
		record, err = resolver.Resolve(c.Request.Context(), input.Barcode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      productNotFoundMessage,
				"suggestion": "upload_label",
			})
			return
		}
	} else {
		extractor := services.NewLabelExtractor(ai)
		record, err = extractor.Extract(c.Request.Context(), input.Image)
		switch {
		case errors.Is(err, services.ErrImageTooLarge), errors.Is(err, services.ErrInvalidImage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to analyze the label. Please try again."})
			return
		}
		if utils.S3Enabled() {
			// best effort; the scan succeeds without the archive
			imageURL, _ = utils.ArchiveLabelImage(input.Image, record.Barcode)
		}
	}

	profile, _ := services.GetHealthProfile(userID)

	analysis, err := services.NewAnalysisService(ai).Analyze(c.Request.Context(), record, profile)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrRateLimited):
			status = http.StatusTooManyRequests
		case errors.Is(err, services.ErrQuotaExceeded):
			status = http.StatusPaymentRequired
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	services.EmitScanCompleted(userID, analysis, imageURL)

	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

// ScanHistory lists the caller's previously scanned products, newest first.
func ScanHistory(c *gin.Context) {
	userID := c.GetUint("userID")

	var records []models.ScanRecord
	if err := config.DB.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(50).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}
