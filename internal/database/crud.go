package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (db *DB) GetSeenListings() ([]string, error) {
	var ids []string
	err := db.Model(&SeenListing{}).Order("listing_id").Pluck("listing_id", &ids).Error
	return ids, err
}

func (db *DB) GetPriceObservations() ([]*PriceObservation, error) {
	var observations []*PriceObservation
	err := db.Order("listing_id, observed_at, id").Find(&observations).Error
	return observations, err
}

// SaveState inserts everything in one transaction. Rows that already exist
// are left alone, so saving the same state twice is harmless.
func (db *DB) SaveState(seen []string, observations []*PriceObservation) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if len(seen) > 0 {
			rows := make([]SeenListing, 0, len(seen))
			for _, id := range seen {
				rows = append(rows, SeenListing{ListingID: id})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 500).Error; err != nil {
				return err
			}
		}

		if len(observations) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(observations, 500).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) DeleteListing(listingID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listingID).Delete(&PriceObservation{}).Error; err != nil {
			return err
		}
		return tx.Where("listing_id = ?", listingID).Delete(&SeenListing{}).Error
	})
}
