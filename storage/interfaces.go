package storage

import "sheriff-scraper/models"

// Store is the relational persistence layer for canonical listings.
type Store interface {
	FetchAll() ([]*models.Listing, error)
	UpsertAll(listings []*models.Listing) error
	UpdateDetail(address string, details models.DetailUpdate) error
	Close() error
}

// Exporter maintains the flat file the downstream application reads.
type Exporter interface {
	Write(listings []*models.Listing) error
	Read() ([]*models.Listing, error)
	Path() string
}
