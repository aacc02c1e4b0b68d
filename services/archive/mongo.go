// Package archive mirrors persisted snapshots into MongoDB for long-term
// retention outside the primary database.
package archive

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"marketpulse/models"
)

const (
	databaseName   = "marketpulse"
	collectionName = "snapshots"
	connectTimeout = 10 * time.Second
)

// snapshotDoc is the archive representation of a snapshot. Decimal values
// are stored as plain floats; the archive is for inspection, not math.
type snapshotDoc struct {
	ID           uint        `bson:"_id"`
	Timestamp    time.Time   `bson:"timestamp"`
	SpyPrice     *float64    `bson:"spy_price,omitempty"`
	QqqPrice     *float64    `bson:"qqq_price,omitempty"`
	DiaPrice     *float64    `bson:"dia_price,omitempty"`
	VixLevel     *float64    `bson:"vix_level,omitempty"`
	MarketStatus string      `bson:"market_status"`
	TotalStocks  int         `bson:"total_stocks"`
	Sectors      []sectorDoc `bson:"sectors"`
}

type sectorDoc struct {
	Sector        string  `bson:"sector"`
	ChangePercent float64 `bson:"change_percent"`
}

// SnapshotArchive writes snapshots to MongoDB. A zero-value archive (or
// one built with an empty URI) is disabled and all writes are no-ops.
type SnapshotArchive struct {
	client *mongo.Client
}

// NewSnapshotArchive connects to MongoDB at uri. An empty uri returns a
// disabled archive without error.
func NewSnapshotArchive(ctx context.Context, uri string) (*SnapshotArchive, error) {
	if uri == "" {
		log.Println("MongoDB archive disabled: no URI configured")
		return &SnapshotArchive{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	log.Println("Connected to MongoDB snapshot archive")
	return &SnapshotArchive{client: client}, nil
}

// Enabled reports whether the archive has a live connection.
func (a *SnapshotArchive) Enabled() bool {
	return a != nil && a.client != nil
}

// ArchiveSnapshot upserts the snapshot into the archive collection,
// keyed by its primary-store ID.
func (a *SnapshotArchive) ArchiveSnapshot(ctx context.Context, snap *models.MarketSnapshot) error {
	if !a.Enabled() {
		return nil
	}

	doc := snapshotDoc{
		ID:           snap.ID,
		Timestamp:    snap.Timestamp,
		SpyPrice:     nullDecimalFloat(snap.SpyPrice),
		QqqPrice:     nullDecimalFloat(snap.QqqPrice),
		DiaPrice:     nullDecimalFloat(snap.DiaPrice),
		VixLevel:     nullDecimalFloat(snap.VixLevel),
		MarketStatus: snap.MarketStatus,
		TotalStocks:  snap.TotalStocks,
		Sectors:      make([]sectorDoc, 0, len(snap.Sectors)),
	}
	for _, s := range snap.Sectors {
		doc.Sectors = append(doc.Sectors, sectorDoc{
			Sector:        s.Sector,
			ChangePercent: s.ChangePercent.InexactFloat64(),
		})
	}

	coll := a.client.Database(databaseName).Collection(collectionName)
	_, err := coll.ReplaceOne(ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("archive snapshot %d: %w", doc.ID, err)
	}
	return nil
}

// Close disconnects from MongoDB. Safe to call on a disabled archive.
func (a *SnapshotArchive) Close(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}
	return a.client.Disconnect(ctx)
}

func nullDecimalFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
