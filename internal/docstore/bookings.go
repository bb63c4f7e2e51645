package docstore

import (
	"context"
	"fmt"
	"time"

	"carrental/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = s.now()
	}
	booking.UpdatedAt = booking.CreatedAt
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}
	if _, err := s.bookings().InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var b models.Booking
	if err := s.bookings().FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, notFoundOr(err, "failed to get booking")
	}
	return &b, nil
}

func (s *Store) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.findBookings(ctx, bson.M{})
}

func (s *Store) ListBookingsByCustomer(ctx context.Context, customerID string) ([]*models.Booking, error) {
	return s.findBookings(ctx, bson.M{"customer_id": customerID})
}

func (s *Store) findBookings(ctx context.Context, query bson.M) ([]*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.bookings().Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := make([]*models.Booking, 0)
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

// UpdateBookingStatus updates the booking first and then the car. A failure
// between the two writes leaves the car flag stale.
func (s *Store) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus, carAvailable *bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var b models.Booking
	err := s.bookings().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": s.now()}},
	).Decode(&b)
	if err != nil {
		return notFoundOr(err, "failed to update booking status")
	}

	if carAvailable == nil {
		return nil
	}
	res, err := s.cars().UpdateOne(ctx, bson.M{"_id": b.CarID}, bson.M{"$set": bson.M{"available": *carAvailable}})
	if err != nil {
		return fmt.Errorf("failed to update car availability: %w", err)
	}
	if res.MatchedCount == 0 {
		s.logger.Warn().Str("booking_id", id).Str("car_id", b.CarID).Msg("booked car no longer exists")
	}
	return nil
}

func (s *Store) CountBookingsByStatus(ctx context.Context) (map[models.BookingStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipeline := bson.A{
		bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}
	cursor, err := s.bookings().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.BookingStatus `bson:"_id"`
		Count  int64                `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode status counts: %w", err)
	}

	counts := make(map[models.BookingStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *Store) SumRevenue(ctx context.Context, statuses []models.BookingStatus) (float64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipeline := bson.A{
		bson.M{"$match": bson.M{"status": bson.M{"$in": statuses}}},
		bson.M{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$total_amount"}}},
	}
	cursor, err := s.bookings().Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode revenue: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (s *Store) MonthlyRevenue(ctx context.Context, since time.Time, statuses []models.BookingStatus) ([]models.MonthlyRevenue, error) {
	result := make([]models.MonthlyRevenue, 0)
	if len(statuses) == 0 {
		return result, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"status":     bson.M{"$in": statuses},
			"created_at": bson.M{"$gte": since.UTC()},
		}},
		bson.M{"$group": bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$created_at"},
				"month": bson.M{"$month": "$created_at"},
			},
			"revenue": bson.M{"$sum": "$total_amount"},
			"count":   bson.M{"$sum": 1},
		}},
		bson.M{"$sort": bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}}},
	}
	cursor, err := s.bookings().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly revenue: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID struct {
			Year  int `bson:"year"`
			Month int `bson:"month"`
		} `bson:"_id"`
		Revenue float64 `bson:"revenue"`
		Count   int64   `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode monthly revenue: %w", err)
	}
	for _, r := range rows {
		result = append(result, models.MonthlyRevenue{Year: r.ID.Year, Month: r.ID.Month, Revenue: r.Revenue, Count: r.Count})
	}
	return result, nil
}
