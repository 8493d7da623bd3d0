// Package sqlite implements the ledger on a local SQLite database through gorm.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gmsas95/ledgerbot/internal/bills"
	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/gmsas95/ledgerbot/internal/ledger"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"github.com/google/uuid"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Row is a persisted ledger line. Seq keeps insertion order, which plays the
// role of the sheet's physical position.
type Row struct {
	Seq         uint   `gorm:"primaryKey;autoIncrement"`
	ID          string `gorm:"uniqueIndex;size:36;not null"`
	Date        time.Time
	Type        string `gorm:"index;size:20"`
	Category    string `gorm:"index"`
	Amount      int64
	Description string
	Person      string    `gorm:"size:10"`
	MonthStart  time.Time `gorm:"index"`
	Source      string    `gorm:"size:20"`
	CreatedAt   time.Time
}

func (Row) TableName() string { return "ledger_rows" }

// Bill is a fixed bill template
type Bill struct {
	ID          uint   `gorm:"primaryKey"`
	Category    string `gorm:"uniqueIndex"`
	Amount      int64
	Person      string
	AutoInclude bool
	Active      bool `gorm:"index"`
}

func (Bill) TableName() string { return "fixed_bills" }

// Store is a ledger.Store and bills.Source on SQLite
type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = path + "?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every connection would see its own empty database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	db, err := gorm.Open(gormsqlite.Dialector{Conn: sqlDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&Row{}, &Bill{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Append implements ledger.Store
func (s *Store) Append(ctx context.Context, row ledger.Row) (ledger.Row, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	m := toModel(row)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return ledger.Row{}, storeErr("append", err)
	}

	var pos int64
	if err := s.db.WithContext(ctx).Model(&Row{}).Where("seq <= ?", m.Seq).Count(&pos).Error; err != nil {
		return ledger.Row{}, storeErr("append", err)
	}
	row.Index = int(pos) + 1
	return row, nil
}

// ReadAll implements ledger.Store
func (s *Store) ReadAll(ctx context.Context) ([]ledger.Row, error) {
	var models []Row
	if err := s.db.WithContext(ctx).Order("seq").Find(&models).Error; err != nil {
		return nil, storeErr("read_all", err)
	}
	rows := make([]ledger.Row, len(models))
	for i, m := range models {
		rows[i] = fromModel(m)
		rows[i].Index = i + 2
	}
	return rows, nil
}

// UpdateCell implements ledger.Store
func (s *Store) UpdateCell(ctx context.Context, id string, col ledger.Column, value any) error {
	var probe ledger.Row
	if err := ledger.SetColumn(&probe, col, value); err != nil {
		return apperrors.From(apperrors.ErrStoreFailed, err)
	}
	column, v := columnValue(col, probe)

	res := s.db.WithContext(ctx).Model(&Row{}).Where("id = ?", id).Update(column, v)
	if res.Error != nil {
		return storeErr("update_cell", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.From(apperrors.ErrRowNotFound, fmt.Errorf("id %s", id))
	}
	return nil
}

// Delete implements ledger.Store
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Row{})
	if res.Error != nil {
		return storeErr("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.From(apperrors.ErrRowNotFound, fmt.Errorf("id %s", id))
	}
	return nil
}

// ActiveBills implements bills.Source
func (s *Store) ActiveBills(ctx context.Context) ([]bills.Bill, error) {
	var models []Bill
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&models).Error; err != nil {
		return nil, storeErr("read_bills", err)
	}
	out := make([]bills.Bill, len(models))
	for i, m := range models {
		out[i] = bills.Bill{
			Category:      m.Category,
			DefaultAmount: m.Amount,
			Owner:         bills.NormalizeOwner(m.Person),
			AutoInclude:   m.AutoInclude,
		}
	}
	return out, nil
}

// SeedBills inserts bills that are not stored yet, matched by category
func (s *Store) SeedBills(ctx context.Context, bs []bills.Bill) error {
	for _, b := range bs {
		m := Bill{
			Category:    b.Category,
			Amount:      b.DefaultAmount,
			Person:      string(b.Owner),
			AutoInclude: b.AutoInclude,
			Active:      true,
		}
		if err := s.db.WithContext(ctx).Where(Bill{Category: b.Category}).FirstOrCreate(&m).Error; err != nil {
			return storeErr("seed_bills", err)
		}
	}
	return nil
}

func columnValue(col ledger.Column, r ledger.Row) (string, any) {
	switch col {
	case ledger.ColAmount:
		return "amount", r.Amount
	case ledger.ColDescription:
		return "description", r.Description
	case ledger.ColCategory:
		return "category", r.Category
	case ledger.ColPerson:
		return "person", string(r.Person)
	case ledger.ColType:
		return "type", string(r.Type)
	}
	return "source", r.Source
}

func toModel(r ledger.Row) Row {
	return Row{
		ID:          r.ID,
		Date:        r.Date,
		Type:        string(r.Type),
		Category:    r.Category,
		Amount:      r.Amount,
		Description: r.Description,
		Person:      string(r.Person),
		MonthStart:  r.MonthStart,
		Source:      r.Source,
	}
}

func fromModel(m Row) ledger.Row {
	return ledger.Row{
		ID:          m.ID,
		Date:        m.Date,
		Type:        ledger.RowType(m.Type),
		Category:    m.Category,
		Amount:      m.Amount,
		Description: m.Description,
		Person:      ledger.Person(m.Person),
		MonthStart:  m.MonthStart,
		Source:      m.Source,
	}
}

func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.From(apperrors.ErrStoreUnavailable, fmt.Errorf("sqlite %s: %w", op, err))
	}
	return apperrors.From(apperrors.ErrStoreFailed, fmt.Errorf("sqlite %s: %w", op, err))
}
