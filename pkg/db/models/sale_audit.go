package models

import "time"

// SaleAudit is the immutable record that a sale left the queue in a drain.
type SaleAudit struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Centre    string    `gorm:"column:centre;type:text;not null;index:idx_sale_audits_lookup,priority:1"`
	SaleID    string    `gorm:"column:sale_id;type:text;not null;index:idx_sale_audits_lookup,priority:2"`
	Position  int       `gorm:"column:position;not null"`
	Payload   string    `gorm:"column:payload;type:json;not null"`
	DrainedAt time.Time `gorm:"column:drained_at;not null"`
}

func (SaleAudit) TableName() string { return "sale_audits" }
