package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/google/uuid"
)

const carColumns = `id, name, brand, model, year, color, mileage, image, price_per_day,
	available, transmission, fuel_type, seats, features, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCar(row rowScanner) (*models.Car, error) {
	var (
		car                 models.Car
		model, color, image sql.NullString
		year, mileage       sql.NullInt64
		features            string
	)
	err := row.Scan(
		&car.ID, &car.Name, &car.Brand, &model, &year, &color, &mileage, &image,
		&car.PricePerDay, &car.Available, &car.Transmission, &car.FuelType, &car.Seats,
		&features, &car.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	car.Model = model.String
	car.Color = color.String
	car.Image = image.String
	car.Year = int(year.Int64)
	car.Mileage = int(mileage.Int64)
	if err := json.Unmarshal([]byte(features), &car.Features); err != nil {
		return nil, fmt.Errorf("decode features of car %s: %w", car.ID, err)
	}
	return &car, nil
}

func (db *DB) ListCars(ctx context.Context, filter models.CarFilter) ([]*models.Car, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Brand != "" {
		where = append(where, "brand = ?")
		args = append(args, filter.Brand)
	}
	if filter.Transmission != "" {
		where = append(where, "transmission = ?")
		args = append(args, filter.Transmission)
	}
	if filter.Available != nil {
		where = append(where, "available = ?")
		args = append(args, *filter.Available)
	}
	if filter.MinPrice != nil {
		where = append(where, "price_per_day >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "price_per_day <= ?")
		args = append(args, *filter.MaxPrice)
	}

	query := `SELECT ` + carColumns + ` FROM cars`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	defer rows.Close()

	cars := make([]*models.Car, 0)
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

func (db *DB) GetCar(ctx context.Context, id string) (*models.Car, error) {
	row := db.QueryRowContext(ctx, `SELECT `+carColumns+` FROM cars WHERE id = ?`, id)
	car, err := scanCar(row)
	if err != nil {
		return nil, notFoundOr(err, "failed to get car")
	}
	return car, nil
}

func (db *DB) CreateCar(ctx context.Context, car *models.Car) error {
	if car.ID == "" {
		car.ID = uuid.NewString()
	}
	if car.CreatedAt.IsZero() {
		car.CreatedAt = db.now()
	}
	car.CreatedAt = car.CreatedAt.UTC()
	features, err := json.Marshal(nonNilFeatures(car.Features))
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	query := `INSERT INTO cars (` + carColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, query,
		car.ID, car.Name, car.Brand, car.Model, car.Year, car.Color, car.Mileage, car.Image,
		car.PricePerDay, car.Available, car.Transmission, car.FuelType, car.Seats,
		string(features), car.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create car: %w", err)
	}
	return nil
}

func (db *DB) UpdateCar(ctx context.Context, car *models.Car) error {
	features, err := json.Marshal(nonNilFeatures(car.Features))
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	query := `UPDATE cars SET name = ?, brand = ?, model = ?, year = ?, color = ?, mileage = ?,
		image = ?, price_per_day = ?, available = ?, transmission = ?, fuel_type = ?, seats = ?, features = ?
		WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		car.Name, car.Brand, car.Model, car.Year, car.Color, car.Mileage,
		car.Image, car.PricePerDay, car.Available, car.Transmission, car.FuelType, car.Seats,
		string(features), car.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}
	return requireAffected(result)
}

// DeleteCar removes the listing regardless of bookings that still reference it.
func (db *DB) DeleteCar(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM cars WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}
	return requireAffected(result)
}

func (db *DB) ListBrands(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT brand FROM cars ORDER BY brand`)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	brands := make([]string, 0)
	for rows.Next() {
		var brand string
		if err := rows.Scan(&brand); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, brand)
	}
	return brands, rows.Err()
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nonNilFeatures(f []string) []string {
	if f == nil {
		return []string{}
	}
	return f
}
