package orm

import "time"

// UsageSnapshot is a gorm table definition represents the usage_snapshots.
type UsageSnapshot struct {
	ID                    uint64 `gorm:"primary_key"`
	TotalBytesStored      uint64
	TotalActiveUploads    uint64
	PlanLimitBytes        uint64
	UtilizationPercentage float64
	CreatedAt             time.Time
}
