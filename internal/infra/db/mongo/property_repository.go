package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainproperty "staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/money"
	domaintenant "staymarket/internal/domain/tenant"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	col := db.Collection("agg_property")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "state", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &PropertyRepository{col: col}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproperty.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PropertyRepository) ActiveByTenant(ctx context.Context, tenantID domaintenant.TenantID) ([]*domainproperty.Property, error) {
	filter := bson.M{"tenant_id": tenantID, "state": string(domainproperty.PropertyActive)}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainproperty.Property
	for cur.Next(ctx) {
		var doc propertyDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	doc := newPropertyDocument(p)
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	doc.Version = p.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	p.Version = doc.Version
	return nil
}

type propertyDocument struct {
	ID          string `bson:"_id"`
	TenantID    string `bson:"tenant_id"`
	Title       string `bson:"title"`
	MaxGuests   int    `bson:"max_guests"`
	Bedrooms    int    `bson:"bedrooms"`
	Bathrooms   int    `bson:"bathrooms"`
	BaseAmount  int64  `bson:"base_amount"`
	CleaningFee int64  `bson:"cleaning_fee"`
	Currency    string `bson:"currency"`
	MinNights   int    `bson:"min_nights"`
	MaxNights   int    `bson:"max_nights"`
	ExternalID  string `bson:"external_id"`
	State       string `bson:"state"`
	CreatedAt   int64  `bson:"created_at"`
	UpdatedAt   int64  `bson:"updated_at"`
	Version     int64  `bson:"version"`
}

func newPropertyDocument(p *domainproperty.Property) propertyDocument {
	return propertyDocument{
		ID:          string(p.ID),
		TenantID:    string(p.TenantID),
		Title:       p.Title,
		MaxGuests:   p.MaxGuests,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		BaseAmount:  p.BasePrice.Amount,
		CleaningFee: p.CleaningFee.Amount,
		Currency:    p.BasePrice.Currency,
		MinNights:   p.MinNights,
		MaxNights:   p.MaxNights,
		ExternalID:  p.ExternalID,
		State:       string(p.State),
		CreatedAt:   p.CreatedAt.UnixMilli(),
		UpdatedAt:   p.UpdatedAt.UnixMilli(),
		Version:     p.Version,
	}
}

func (d propertyDocument) toAggregate() *domainproperty.Property {
	return &domainproperty.Property{
		ID:          domainproperty.PropertyID(d.ID),
		TenantID:    domaintenant.TenantID(d.TenantID),
		Title:       d.Title,
		MaxGuests:   d.MaxGuests,
		Bedrooms:    d.Bedrooms,
		Bathrooms:   d.Bathrooms,
		BasePrice:   money.Money{Amount: d.BaseAmount, Currency: d.Currency},
		CleaningFee: money.Money{Amount: d.CleaningFee, Currency: d.Currency},
		MinNights:   d.MinNights,
		MaxNights:   d.MaxNights,
		ExternalID:  d.ExternalID,
		State:       domainproperty.PropertyState(d.State),
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
		Version:     d.Version,
	}
}
