package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type SeenListing struct {
	ListingID string    `json:"listing_id" gorm:"primaryKey;size:512"`
	CreatedAt time.Time `json:"created_at"`
}

type PriceObservation struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ListingID  string    `json:"listing_id" gorm:"size:512;not null;uniqueIndex:idx_listing_observed"`
	ObservedAt time.Time `json:"observed_at" gorm:"not null;uniqueIndex:idx_listing_observed"`
	Price      int       `json:"price" gorm:"not null"`
}

type DB struct {
	*gorm.DB
}

func Connect(dsn string) (*DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func (db *DB) Migrate() error {
	return db.AutoMigrate(&SeenListing{}, &PriceObservation{})
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
