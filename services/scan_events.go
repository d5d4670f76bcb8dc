package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/vamshi726/food-scan-ai/models"
	"gorm.io/gorm"
)

type scanEventDeps struct {
	db *gorm.DB
	rt *RealtimeHub
}

var _scan scanEventDeps

func InitScanEventDeps(db *gorm.DB, rt *RealtimeHub) {
	_scan = scanEventDeps{db: db, rt: rt}
}

// EmitScanCompleted persists the history row for a finished analysis and
// notifies the user's open sockets. Safe to call for anonymous scans
// (userID 0 skips persistence).
func EmitScanCompleted(userID uint, result *AnalysisResult, imageURL string) {
	if _scan.db == nil || userID == 0 {
		return
	}

	raw, _ := json.Marshal(result)
	rec := &models.ScanRecord{
		UserID:      userID,
		Barcode:     result.Barcode,
		ProductName: result.ProductName,
		DataSource:  result.DataSource,
		HealthScore: result.HealthScore,
		Category:    result.Category,
		Analysis:    string(raw),
		ImageURL:    imageURL,
	}
	if err := _scan.db.Create(rec).Error; err != nil {
		log.Printf("failed to persist scan record: %v", err)
		return
	}

	if _scan.rt != nil {
		_scan.rt.Broadcast(userID, map[string]any{
			"kind":        "scan.completed",
			"scanId":      rec.ID,
			"productName": rec.ProductName,
			"healthScore": rec.HealthScore,
			"category":    rec.Category,
			"at":          time.Now().UTC(),
		})
	}
}
