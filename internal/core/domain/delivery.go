package domain

import (
	"errors"
	"time"
)

// MaxChunkSize is the largest number of records the bulk endpoint accepts.
const MaxChunkSize = 1000

const (
	RouteSingle = "single"
	RouteBulk   = "bulk"
)

var ErrFallbackWrite = errors.New("fallback write failed")

// BannerView is the ShowAds payload for one record.
type BannerView struct {
	VisitorCookie string `json:"VisitorCookie"`
	BannerID      int    `json:"BannerId"`
}

// BulkBannerView wraps up to MaxChunkSize views for the bulk endpoint.
type BulkBannerView struct {
	Data []BannerView `json:"Data"`
}

// DeliveryOutcome summarizes how one chunk was handled.
type DeliveryOutcome struct {
	BatchID      string    `json:"batch_id" bson:"batch_id"`
	Route        string    `json:"route" bson:"route"`
	ChunkIndex   int       `json:"chunk_index" bson:"chunk_index"`
	Size         int       `json:"size" bson:"size"`
	Delivered    int       `json:"delivered" bson:"delivered"`
	Attempts     int       `json:"attempts" bson:"attempts"`
	FallbackFile string    `json:"fallback_file,omitempty" bson:"fallback_file,omitempty"`
	At           time.Time `json:"at" bson:"at"`
}
