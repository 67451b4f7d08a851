package models

import "time"

// QueuedSale is one pending sale of a centre queue. Rows are ordered by ID.
type QueuedSale struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Centre     string    `gorm:"column:centre;type:text;not null;index:idx_queued_sales_centre_id,priority:1"`
	SaleID     string    `gorm:"column:sale_id;type:text;not null"`
	Payload    string    `gorm:"column:payload;type:json;not null"`
	EnqueuedAt time.Time `gorm:"column:enqueued_at;not null"`
}

func (QueuedSale) TableName() string { return "queued_sales" }
