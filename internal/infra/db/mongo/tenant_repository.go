package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaintenant "staymarket/internal/domain/tenant"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type TenantRepository struct {
	col *mongo.Collection
}

func NewTenantRepository(db *mongo.Database) *TenantRepository {
	return &TenantRepository{col: db.Collection("agg_tenant")}
}

func (r *TenantRepository) ByID(ctx context.Context, id domaintenant.TenantID) (*domaintenant.Tenant, error) {
	var doc tenantDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaintenant.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *TenantRepository) ListActive(ctx context.Context) ([]*domaintenant.Tenant, error) {
	cur, err := r.col.Find(ctx, bson.M{"state": string(domaintenant.TenantActive)})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domaintenant.Tenant
	for cur.Next(ctx) {
		var doc tenantDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *TenantRepository) Save(ctx context.Context, t *domaintenant.Tenant) error {
	doc := newTenantDocument(t)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type tenantDocument struct {
	ID        string `bson:"_id"`
	Name      string `bson:"name"`
	State     string `bson:"state"`
	Currency  string `bson:"currency"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func newTenantDocument(t *domaintenant.Tenant) tenantDocument {
	return tenantDocument{
		ID:        string(t.ID),
		Name:      t.Name,
		State:     string(t.State),
		Currency:  t.Currency,
		CreatedAt: t.CreatedAt.UnixMilli(),
		UpdatedAt: t.UpdatedAt.UnixMilli(),
	}
}

func (d tenantDocument) toAggregate() *domaintenant.Tenant {
	return &domaintenant.Tenant{
		ID:        domaintenant.TenantID(d.ID),
		Name:      d.Name,
		State:     domaintenant.TenantState(d.State),
		Currency:  d.Currency,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
