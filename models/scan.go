package models

import "gorm.io/gorm"

// ScanRecord is the history row kept after a completed scan. The full
// AnalysisResult stays session-scoped; only this summary plus the raw
// analysis JSON is persisted.
type ScanRecord struct {
	gorm.Model
	UserID      uint   `gorm:"index"`
	Barcode     string `gorm:"size:64;index"`
	ProductName string
	DataSource  string `gorm:"size:40"`
	HealthScore int
	Category    string `gorm:"size:20"`
	Analysis    string `gorm:"type:text"` // raw AnalysisResult JSON
	ImageURL    string // S3 archive of the label photo, if any
}
