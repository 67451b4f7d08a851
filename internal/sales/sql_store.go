package sales

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/posrelay/pkg/db"
	"github.com/angelmondragon/posrelay/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps the queue in postgres. A drain is one transaction that locks
// the centre's queued rows, copies them into sale_audits and deletes them.
// Rows inserted after the lock is taken stay queued.
type SQLStore struct {
	db    *db.Client
	clock func() time.Time
}

// NewSQLStore binds the store to a database client.
func NewSQLStore(client *db.Client) *SQLStore {
	return &SQLStore{db: client, clock: time.Now}
}

func (s *SQLStore) Append(ctx context.Context, centre string, sale Sale) error {
	row := models.QueuedSale{
		Centre:     centre,
		SaleID:     sale.ID,
		Payload:    string(sale.Payload),
		EnqueuedAt: s.clock().UTC(),
	}
	return s.db.DB().WithContext(ctx).Create(&row).Error
}

func (s *SQLStore) DrainWithAudit(ctx context.Context, centre string, drainedAt time.Time) ([]Sale, error) {
	var sales []Sale
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var rows []models.QueuedSale
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("centre = ?", centre).
			Order("id").
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		audits := make([]models.SaleAudit, 0, len(rows))
		ids := make([]int64, 0, len(rows))
		batch := make([]Sale, 0, len(rows))
		for i, row := range rows {
			audits = append(audits, models.SaleAudit{
				Centre:    centre,
				SaleID:    row.SaleID,
				Position:  i,
				Payload:   row.Payload,
				DrainedAt: drainedAt,
			})
			ids = append(ids, row.ID)
			batch = append(batch, Sale{ID: row.SaleID, Payload: json.RawMessage(row.Payload)})
		}
		if err := tx.Create(&audits).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.QueuedSale{}).Error; err != nil {
			return err
		}
		sales = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sales == nil {
		sales = []Sale{}
	}
	return sales, nil
}

func (s *SQLStore) AuditTrail(ctx context.Context, centre, saleID string) ([]AuditEntry, error) {
	var rows []models.SaleAudit
	if err := s.db.DB().WithContext(ctx).
		Where("centre = ? AND sale_id = ?", centre, saleID).
		Order("drained_at, position, id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, AuditEntry{
			DrainedAt: row.DrainedAt.UTC(),
			Position:  row.Position,
			Sale:      json.RawMessage(row.Payload),
		})
	}
	return entries, nil
}

func (s *SQLStore) Depth(ctx context.Context, centre string) (int64, error) {
	var count int64
	err := s.db.DB().WithContext(ctx).Model(&models.QueuedSale{}).Where("centre = ?", centre).Count(&count).Error
	return count, err
}
