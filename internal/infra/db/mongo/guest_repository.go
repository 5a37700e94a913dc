package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainguest "staymarket/internal/domain/guest"
	"staymarket/internal/domain/shared/money"
	domaintenant "staymarket/internal/domain/tenant"
)

type GuestRepository struct {
	col *mongo.Collection
}

func NewGuestRepository(db *mongo.Database) *GuestRepository {
	col := db.Collection("agg_guest")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &GuestRepository{col: col}
}

func (r *GuestRepository) ByID(ctx context.Context, id domainguest.GuestID) (*domainguest.Guest, error) {
	var doc guestDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainguest.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *GuestRepository) ByEmail(ctx context.Context, tenantID domaintenant.TenantID, email string) (*domainguest.Guest, error) {
	filter := bson.M{"tenant_id": tenantID, "email": domainguest.NormalizeEmail(email)}
	var doc guestDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainguest.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *GuestRepository) Save(ctx context.Context, g *domainguest.Guest) error {
	doc := newGuestDocument(g)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type guestDocument struct {
	ID         string `bson:"_id"`
	TenantID   string `bson:"tenant_id"`
	Email      string `bson:"email"`
	FullName   string `bson:"full_name"`
	Phone      string `bson:"phone"`
	TotalStays int    `bson:"total_stays"`
	TotalSpent int64  `bson:"total_spent"`
	Currency   string `bson:"currency"`
	LastStayAt int64  `bson:"last_stay_at"`
	CreatedAt  int64  `bson:"created_at"`
	UpdatedAt  int64  `bson:"updated_at"`
}

func newGuestDocument(g *domainguest.Guest) guestDocument {
	return guestDocument{
		ID:         string(g.ID),
		TenantID:   string(g.TenantID),
		Email:      g.Email,
		FullName:   g.FullName,
		Phone:      g.Phone,
		TotalStays: g.TotalStays,
		TotalSpent: g.TotalSpent.Amount,
		Currency:   g.TotalSpent.Currency,
		LastStayAt: g.LastStayAt.UnixMilli(),
		CreatedAt:  g.CreatedAt.UnixMilli(),
		UpdatedAt:  g.UpdatedAt.UnixMilli(),
	}
}

func (d guestDocument) toAggregate() *domainguest.Guest {
	return &domainguest.Guest{
		ID:         domainguest.GuestID(d.ID),
		TenantID:   domaintenant.TenantID(d.TenantID),
		Email:      d.Email,
		FullName:   d.FullName,
		Phone:      d.Phone,
		TotalStays: d.TotalStays,
		TotalSpent: money.Money{Amount: d.TotalSpent, Currency: d.Currency},
		LastStayAt: timestampToTime(d.LastStayAt),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
	}
}
