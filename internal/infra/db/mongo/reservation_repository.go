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
	domainreservation "staymarket/internal/domain/reservation"
	domainrange "staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/stay"
	domaintenant "staymarket/internal/domain/tenant"
)

type ReservationRepository struct {
	col *mongo.Collection
}

// NewReservationRepository creates the repository and the unique index that
// backs confirmation-code collision detection.
func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	col := db.Collection("agg_reservation")
	codeIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "confirmation_code", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	guestIdx := mongo.IndexModel{Keys: bson.D{{Key: "guest_id", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), codeIdx)
	_, _ = col.Indexes().CreateOne(context.Background(), guestIdx)
	return &ReservationRepository{col: col}
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreservation.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) ByCode(ctx context.Context, code string) (*domainreservation.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, bson.M{"confirmation_code": code}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreservation.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	doc := newReservationDocument(res)
	filter := bson.M{"_id": doc.ID, "version": res.Version}
	doc.Version = res.Version + 1
	result, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// A duplicate _id means a lost version race; a duplicate
			// confirmation code means the generator collided.
			if res.Version == 0 {
				return domainreservation.ErrDuplicateCode
			}
			return ErrConcurrentUpdate
		}
		return err
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	res.Version = doc.Version
	return nil
}

func (r *ReservationRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainreservation.Reservation, error) {
	cur, err := r.col.Find(ctx, bson.M{"guest_id": guestID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainreservation.Reservation
	for cur.Next(ctx) {
		var doc reservationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type reservationDocument struct {
	ID               string                                 `bson:"_id"`
	ConfirmationCode string                                 `bson:"confirmation_code"`
	TenantID         string                                 `bson:"tenant_id"`
	PropertyID       string                                 `bson:"property_id"`
	QuoteID          string                                 `bson:"quote_id"`
	GuestID          string                                 `bson:"guest_id"`
	Range            rangeDocument                          `bson:"range"`
	Adults           int                                    `bson:"adults"`
	Children         int                                    `bson:"children"`
	Price            domainpricing.Breakdown                `bson:"price"`
	State            string                                 `bson:"state"`
	Payment          string                                 `bson:"payment"`
	PaymentRef       string                                 `bson:"payment_ref"`
	SourceKind       string                                 `bson:"source_kind"`
	SourceChannel    string                                 `bson:"source_channel"`
	Policy           domainreservation.RefundPolicySnapshot `bson:"policy"`
	CancelReason     string                                 `bson:"cancel_reason"`
	CreatedAt        int64                                  `bson:"created_at"`
	UpdatedAt        int64                                  `bson:"updated_at"`
	Version          int64                                  `bson:"version"`
}

func newReservationDocument(res *domainreservation.Reservation) reservationDocument {
	return reservationDocument{
		ID:               string(res.ID),
		ConfirmationCode: res.ConfirmationCode,
		TenantID:         string(res.TenantID),
		PropertyID:       string(res.PropertyID),
		QuoteID:          string(res.QuoteID),
		GuestID:          res.GuestID,
		Range:            rangeDocument{CheckIn: res.Range.CheckIn.UnixMilli(), CheckOut: res.Range.CheckOut.UnixMilli()},
		Adults:           res.Guests.Adults,
		Children:         res.Guests.Children,
		Price:            res.Price,
		State:            string(res.State),
		Payment:          string(res.Payment),
		PaymentRef:       res.PaymentRef,
		SourceKind:       string(res.Source.Kind),
		SourceChannel:    res.Source.Channel,
		Policy:           res.Policy,
		CancelReason:     res.CancelReason,
		CreatedAt:        res.CreatedAt.UnixMilli(),
		UpdatedAt:        res.UpdatedAt.UnixMilli(),
		Version:          res.Version,
	}
}

func (d reservationDocument) toAggregate() *domainreservation.Reservation {
	return &domainreservation.Reservation{
		ID:               domainreservation.ReservationID(d.ID),
		ConfirmationCode: d.ConfirmationCode,
		TenantID:         domaintenant.TenantID(d.TenantID),
		PropertyID:       domainproperty.PropertyID(d.PropertyID),
		QuoteID:          domainquote.QuoteID(d.QuoteID),
		GuestID:          d.GuestID,
		Range:            domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)},
		Guests:           stay.GuestCounts{Adults: d.Adults, Children: d.Children},
		Price:            d.Price,
		State:            domainreservation.ReservationState(d.State),
		Payment:          domainreservation.PaymentStatus(d.Payment),
		PaymentRef:       d.PaymentRef,
		Source:           domainreservation.Source{Kind: domainreservation.SourceKind(d.SourceKind), Channel: d.SourceChannel},
		Policy:           d.Policy,
		CancelReason:     d.CancelReason,
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
		Version:          d.Version,
	}
}
