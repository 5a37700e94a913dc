package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincalendar "staymarket/internal/domain/calendar"
	domainproperty "staymarket/internal/domain/property"
	domainrange "staymarket/internal/domain/shared/daterange"
)

// CalendarStore persists one document per property per date. Day rows are
// created lazily; an absent row means available at the base rate.
type CalendarStore struct {
	col *mongo.Collection
}

func NewCalendarStore(db *mongo.Database) *CalendarStore {
	col := db.Collection("calendar_days")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "date", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &CalendarStore{col: col}
}

func (s *CalendarStore) Days(ctx context.Context, id domainproperty.PropertyID, dr domainrange.DateRange) ([]domaincalendar.Day, error) {
	filter := bson.M{
		"property_id": id,
		"date":        bson.M{"$gte": dr.CheckIn.UnixMilli(), "$lt": dr.CheckOut.UnixMilli()},
	}
	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domaincalendar.Day
	for cur.Next(ctx) {
		var doc dayDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toDay())
	}
	return out, cur.Err()
}

// LockDays books every requested date with one conditional write per day.
// The filter only matches a row that is still available; if the row exists
// in any other state the upsert collides on _id and the duplicate-key error
// reports the conflict. Run inside a session transaction the whole batch
// commits or aborts together, so a loser of a concurrent race leaves no
// partial locks behind.
func (s *CalendarStore) LockDays(ctx context.Context, id domainproperty.PropertyID, dates []time.Time, reservationID string) error {
	now := time.Now().UTC()
	for _, raw := range dates {
		date := domainrange.Day(raw)
		filter := bson.M{
			"_id":    dayKey(id, date),
			"status": string(domaincalendar.DayAvailable),
		}
		update := bson.M{
			"$set": bson.M{
				"status":         string(domaincalendar.DayBooked),
				"reservation_id": reservationID,
				"updated_at":     now.UnixMilli(),
			},
			"$setOnInsert": bson.M{
				"property_id": string(id),
				"date":        date.UnixMilli(),
			},
		}
		res, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
				return domaincalendar.ErrDaysConflict
			}
			return err
		}
		if res.MatchedCount == 0 && res.UpsertedCount == 0 {
			return domaincalendar.ErrDaysConflict
		}
	}
	return nil
}

// ReleaseDays reopens booked rows, keeping overrides intact.
func (s *CalendarStore) ReleaseDays(ctx context.Context, id domainproperty.PropertyID, dates []time.Time) error {
	now := time.Now().UTC()
	keys := make([]string, 0, len(dates))
	for _, raw := range dates {
		keys = append(keys, dayKey(id, domainrange.Day(raw)))
	}
	filter := bson.M{"_id": bson.M{"$in": keys}, "status": string(domaincalendar.DayBooked)}
	update := bson.M{"$set": bson.M{
		"status":         string(domaincalendar.DayAvailable),
		"reservation_id": "",
		"updated_at":     now.UnixMilli(),
	}}
	_, err := s.col.UpdateMany(ctx, filter, update)
	return err
}

func (s *CalendarStore) SetOverride(ctx context.Context, id domainproperty.PropertyID, raw time.Time, priceOverride int64, minNightsOverride int) error {
	date := domainrange.Day(raw)
	update := bson.M{
		"$set": bson.M{
			"price_override":      priceOverride,
			"min_nights_override": minNightsOverride,
			"updated_at":          time.Now().UTC().UnixMilli(),
		},
		"$setOnInsert": bson.M{
			"property_id": string(id),
			"date":        date.UnixMilli(),
			"status":      string(domaincalendar.DayAvailable),
		},
	}
	_, err := s.col.UpdateByID(ctx, dayKey(id, date), update, options.Update().SetUpsert(true))
	return err
}

type dayDocument struct {
	ID                string `bson:"_id"`
	PropertyID        string `bson:"property_id"`
	Date              int64  `bson:"date"`
	Status            string `bson:"status"`
	PriceOverride     int64  `bson:"price_override"`
	MinNightsOverride int    `bson:"min_nights_override"`
	ReservationID     string `bson:"reservation_id"`
	UpdatedAt         int64  `bson:"updated_at"`
}

func (d dayDocument) toDay() domaincalendar.Day {
	return domaincalendar.Day{
		PropertyID:        domainproperty.PropertyID(d.PropertyID),
		Date:              timestampToTime(d.Date),
		Status:            domaincalendar.DayStatus(d.Status),
		PriceOverride:     d.PriceOverride,
		MinNightsOverride: d.MinNightsOverride,
		ReservationID:     d.ReservationID,
		UpdatedAt:         timestampToTime(d.UpdatedAt),
	}
}

func dayKey(id domainproperty.PropertyID, date time.Time) string {
	return string(id) + "#" + date.Format(time.DateOnly)
}

// isWriteConflict detects the WriteConflict (code 112) the server raises when
// two session transactions update the same day row. For the losing caller
// that is the same outcome as losing the duplicate-key race.
func isWriteConflict(err error) bool {
	var srvErr mongo.ServerError
	return errors.As(err, &srvErr) && srvErr.HasErrorCode(112)
}

var _ domaincalendar.Store = (*CalendarStore)(nil)
