package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gradientlab/ticketflow-go/internal/domain/ticket"
)

// ticketRecord maps a ticket onto the tickets table. Timestamps stay
// RFC 3339 strings so the persisted shape matches the other stores.
type ticketRecord struct {
	ID        string  `gorm:"primaryKey;size:64"`
	Question  string  `gorm:"type:text;not null"`
	Status    string  `gorm:"size:20;not null"`
	CreatedAt string  `gorm:"size:64;not null"`
	UpdatedAt string  `gorm:"size:64;not null"`
	Answer    *string `gorm:"type:text"`
	Note      *string `gorm:"type:text"`
}

// TableName specifies the database table name
func (ticketRecord) TableName() string {
	return "tickets"
}

// GormTicketRepo stores tickets in a relational database via GORM.
type GormTicketRepo struct {
	db *gorm.DB
}

// NewGormTicketRepo creates a ticket repository backed by GORM.
func NewGormTicketRepo(db *gorm.DB) *GormTicketRepo {
	return &GormTicketRepo{db: db}
}

// AutoMigrate creates or updates the tickets table.
func (r *GormTicketRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&ticketRecord{})
}

func (r *GormTicketRepo) Save(ctx context.Context, t *ticket.Ticket) error {
	rec := toRecord(t)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		log.Printf("repository: error saving ticket %s: %v", t.ID, err)
		return fmt.Errorf("%w: save ticket %s: %v", ticket.ErrStorageUnavailable, t.ID, err)
	}
	return nil
}

func (r *GormTicketRepo) Get(ctx context.Context, id string) (*ticket.Ticket, error) {
	delay := getBaseDelay
	var lastErr error

	for attempt := 0; attempt < getMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		var rec ticketRecord
		err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ticket.ErrNotFound
		}
		if err != nil {
			lastErr = err
			continue
		}
		return fromRecord(&rec), nil
	}

	log.Printf("repository: error retrieving ticket %s: %v", id, lastErr)
	return nil, fmt.Errorf("%w: get ticket %s: %v", ticket.ErrStorageUnavailable, id, lastErr)
}

func (r *GormTicketRepo) Update(ctx context.Context, t *ticket.Ticket) error {
	return r.Save(ctx, t)
}

func toRecord(t *ticket.Ticket) ticketRecord {
	return ticketRecord{
		ID:        t.ID,
		Question:  t.Question,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Answer:    t.Answer,
		Note:      t.Note,
	}
}

func fromRecord(rec *ticketRecord) *ticket.Ticket {
	return &ticket.Ticket{
		ID:        rec.ID,
		Question:  rec.Question,
		Status:    ticket.TicketStatus(rec.Status),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Answer:    rec.Answer,
		Note:      rec.Note,
	}
}
