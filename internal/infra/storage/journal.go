package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quotebook/internal/domain"
)

// TradeRecord is one fill as written to the journal.
type TradeRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	ExecutedAt time.Time `gorm:"index" json:"executed_at"`
	Side       string    `json:"side"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"qty"`
	PnL        float64   `json:"pnl"`
	Reference  float64   `json:"ref_price"`
	CreatedAt  time.Time `json:"created_at"`
}

func recordFrom(t domain.Trade) TradeRecord {
	return TradeRecord{
		ID:         t.ID,
		ExecutedAt: t.Timestamp,
		Side:       string(t.Side),
		Price:      t.Price,
		Quantity:   t.Quantity,
		PnL:        t.PnL,
		Reference:  t.Reference,
	}
}

// Journal appends fills to SQLite for auditing. It is never read back at startup.
// Writes happen on a background goroutine so the sequencer never waits on disk.
type Journal struct {
	db    *gorm.DB
	queue chan []domain.Trade
	wg    sync.WaitGroup
	once  sync.Once
}

// Open creates (or reuses) the SQLite file at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newJournal(db)
}

func newJournal(db *gorm.DB) (*Journal, error) {
	if err := db.AutoMigrate(&TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Journal{db: db, queue: make(chan []domain.Trade, 1024)}, nil
}

// Start launches the writer goroutine.
func (j *Journal) Start(ctx context.Context) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for {
			select {
			case <-ctx.Done():
				j.drain()
				return
			case batch, ok := <-j.queue:
				if !ok {
					return
				}
				j.write(batch)
			}
		}
	}()
}

func (j *Journal) drain() {
	for {
		select {
		case batch, ok := <-j.queue:
			if !ok {
				return
			}
			j.write(batch)
		default:
			return
		}
	}
}

func (j *Journal) write(batch []domain.Trade) {
	if err := j.Append(batch); err != nil {
		slog.Error("Failed to journal trades", slog.Int("count", len(batch)), slog.Any("error", err))
	}
}

// Enqueue hands a batch to the writer goroutine without blocking.
// Batches are dropped with a warning when the queue is full.
func (j *Journal) Enqueue(trades []domain.Trade) {
	select {
	case j.queue <- trades:
	default:
		slog.Warn("Trade journal queue full, dropping batch", slog.Int("count", len(trades)))
	}
}

// Append writes trades synchronously in one transaction.
func (j *Journal) Append(trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	records := make([]TradeRecord, len(trades))
	for i, t := range trades {
		records[i] = recordFrom(t)
	}
	return j.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
}

// Count returns the number of journaled fills.
func (j *Journal) Count() (int64, error) {
	var n int64
	err := j.db.Model(&TradeRecord{}).Count(&n).Error
	return n, err
}

// Close stops the writer, flushes any batch still queued and closes the database.
// Enqueue must not be called after Close.
func (j *Journal) Close() error {
	var err error
	j.once.Do(func() {
		close(j.queue)
		j.wg.Wait()
		for batch := range j.queue {
			j.write(batch)
		}
		sqlDB, dbErr := j.db.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		err = sqlDB.Close()
	})
	return err
}
