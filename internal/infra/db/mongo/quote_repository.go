package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpricing "staymarket/internal/domain/pricing"
	domainproperty "staymarket/internal/domain/property"
	domainquote "staymarket/internal/domain/quote"
	domainrange "staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/stay"
	domaintenant "staymarket/internal/domain/tenant"
)

type QuoteRepository struct {
	col *mongo.Collection
}

func NewQuoteRepository(db *mongo.Database) *QuoteRepository {
	col := db.Collection("agg_quote")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "expires_at", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &QuoteRepository{col: col}
}

func (r *QuoteRepository) ByID(ctx context.Context, id domainquote.QuoteID) (*domainquote.Quote, error) {
	var doc quoteDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainquote.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *QuoteRepository) Save(ctx context.Context, q *domainquote.Quote) error {
	doc := newQuoteDocument(q)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type quoteDocument struct {
	ID            string                  `bson:"_id"`
	TenantID      string                  `bson:"tenant_id"`
	PropertyID    string                  `bson:"property_id"`
	Range         rangeDocument           `bson:"range"`
	Adults        int                     `bson:"adults"`
	Children      int                     `bson:"children"`
	Price         domainpricing.Breakdown `bson:"price"`
	PromoCode     string                  `bson:"promo_code"`
	Status        string                  `bson:"status"`
	ReservationID string                  `bson:"reservation_id"`
	ExpiresAt     int64                   `bson:"expires_at"`
	CreatedAt     int64                   `bson:"created_at"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newQuoteDocument(q *domainquote.Quote) quoteDocument {
	return quoteDocument{
		ID:            string(q.ID),
		TenantID:      string(q.TenantID),
		PropertyID:    string(q.PropertyID),
		Range:         rangeDocument{CheckIn: q.Range.CheckIn.UnixMilli(), CheckOut: q.Range.CheckOut.UnixMilli()},
		Adults:        q.Guests.Adults,
		Children:      q.Guests.Children,
		Price:         q.Price,
		PromoCode:     q.PromoCode,
		Status:        string(q.Status),
		ReservationID: q.ReservationID,
		ExpiresAt:     q.ExpiresAt.UnixMilli(),
		CreatedAt:     q.CreatedAt.UnixMilli(),
	}
}

func (d quoteDocument) toAggregate() *domainquote.Quote {
	return &domainquote.Quote{
		ID:            domainquote.QuoteID(d.ID),
		TenantID:      domaintenant.TenantID(d.TenantID),
		PropertyID:    domainproperty.PropertyID(d.PropertyID),
		Range:         domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)},
		Guests:        stay.GuestCounts{Adults: d.Adults, Children: d.Children},
		Price:         d.Price,
		PromoCode:     d.PromoCode,
		Status:        domainquote.QuoteStatus(d.Status),
		ReservationID: d.ReservationID,
		ExpiresAt:     timestampToTime(d.ExpiresAt),
		CreatedAt:     timestampToTime(d.CreatedAt),
	}
}
