package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paper-graph/models"
)

// Store ist das explizit konstruierte Handle auf den Wissensgraphen.
// Es wird per Dependency Injection an alle Komponenten gereicht; globale
// Connection-Objekte gibt es nicht.
type Store struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// New erstellt einen Store über einer bestehenden GORM-Verbindung.
func New(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{DB: db, Logger: log}
}

// Open verbindet sich mit PostgreSQL und gibt einen fertigen Store zurück.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return New(db, log), nil
}

// Migrate legt alle Tabellen, Indizes und Constraints an.
func (s *Store) Migrate() error {
	return s.DB.AutoMigrate(
		&models.Paper{},
		&models.Concept{},
		&models.PaperConcept{},
		&models.PaperRelationship{},
		&models.ExtractionLog{},
	)
}

// Ping prüft die Erreichbarkeit der Datenbank.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
