package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/go-chi/chi/v5"
)

type carRequest struct {
	Name         string   `json:"name" validate:"required"`
	Brand        string   `json:"brand" validate:"required"`
	Model        string   `json:"model"`
	Year         int      `json:"year" validate:"gte=0"`
	Color        string   `json:"color"`
	Mileage      int      `json:"mileage" validate:"gte=0"`
	Image        string   `json:"image"`
	PricePerDay  *float64 `json:"pricePerDay" validate:"required,gte=0"`
	Available    *bool    `json:"available"`
	Transmission string   `json:"transmission" validate:"omitempty,oneof=Automatic Manual"`
	FuelType     string   `json:"fuelType" validate:"omitempty,oneof=Petrol Diesel Electric Hybrid"`
	Seats        int      `json:"seats" validate:"gte=0"`
	Features     []string `json:"features"`
}

func (req *carRequest) toCar() *models.Car {
	car := &models.Car{
		Name:         strings.TrimSpace(req.Name),
		Brand:        strings.TrimSpace(req.Brand),
		Model:        strings.TrimSpace(req.Model),
		Year:         req.Year,
		Color:        strings.TrimSpace(req.Color),
		Mileage:      req.Mileage,
		Image:        req.Image,
		PricePerDay:  *req.PricePerDay,
		Available:    true,
		Transmission: models.Transmission(req.Transmission),
		FuelType:     models.FuelType(req.FuelType),
		Seats:        req.Seats,
		Features:     req.Features,
	}
	if req.Available != nil {
		car.Available = *req.Available
	}
	return car
}

// carPatch carries the fields of a partial update; nil fields keep their value.
type carPatch struct {
	Name         *string   `json:"name" validate:"omitempty,min=1"`
	Brand        *string   `json:"brand" validate:"omitempty,min=1"`
	Model        *string   `json:"model"`
	Year         *int      `json:"year" validate:"omitempty,gte=0"`
	Color        *string   `json:"color"`
	Mileage      *int      `json:"mileage" validate:"omitempty,gte=0"`
	Image        *string   `json:"image"`
	PricePerDay  *float64  `json:"pricePerDay" validate:"omitempty,gte=0"`
	Available    *bool     `json:"available"`
	Transmission *string   `json:"transmission" validate:"omitempty,oneof=Automatic Manual"`
	FuelType     *string   `json:"fuelType" validate:"omitempty,oneof=Petrol Diesel Electric Hybrid"`
	Seats        *int      `json:"seats" validate:"omitempty,gte=0"`
	Features     *[]string `json:"features"`
}

func (p *carPatch) apply(car *models.Car) {
	if p.Name != nil {
		car.Name = strings.TrimSpace(*p.Name)
	}
	if p.Brand != nil {
		car.Brand = strings.TrimSpace(*p.Brand)
	}
	if p.Model != nil {
		car.Model = strings.TrimSpace(*p.Model)
	}
	if p.Year != nil {
		car.Year = *p.Year
	}
	if p.Color != nil {
		car.Color = strings.TrimSpace(*p.Color)
	}
	if p.Mileage != nil {
		car.Mileage = *p.Mileage
	}
	if p.Image != nil {
		car.Image = *p.Image
	}
	if p.PricePerDay != nil {
		car.PricePerDay = *p.PricePerDay
	}
	if p.Available != nil {
		car.Available = *p.Available
	}
	if p.Transmission != nil {
		car.Transmission = models.Transmission(*p.Transmission)
	}
	if p.FuelType != nil {
		car.FuelType = models.FuelType(*p.FuelType)
	}
	if p.Seats != nil {
		car.Seats = *p.Seats
	}
	if p.Features != nil {
		car.Features = *p.Features
	}
}

// parseCarFilter reads the catalog query parameters. Empty parameters are ignored.
func parseCarFilter(r *http.Request) (models.CarFilter, error) {
	q := r.URL.Query()
	filter := models.CarFilter{
		Brand:        strings.TrimSpace(q.Get("brand")),
		Transmission: models.Transmission(strings.TrimSpace(q.Get("transmission"))),
	}

	if raw := strings.TrimSpace(q.Get("available")); raw != "" {
		available := raw == "true"
		filter.Available = &available
	}

	var err error
	if filter.MinPrice, err = parsePrice(q.Get("minPrice")); err != nil {
		return filter, fmt.Errorf("%w: minPrice", domain.ErrInvalidInput)
	}
	if filter.MaxPrice, err = parsePrice(q.Get("maxPrice")); err != nil {
		return filter, fmt.Errorf("%w: maxPrice", domain.ErrInvalidInput)
	}
	return filter, nil
}

func parsePrice(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *HTTPServer) handleListCars(w http.ResponseWriter, r *http.Request) {
	filter, err := parseCarFilter(r)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	cars, err := s.svc.Cars.ListCars(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	if cars == nil {
		cars = []*models.Car{}
	}
	writeJSON(w, http.StatusOK, cars)
}

func (s *HTTPServer) handleBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := s.svc.Cars.Brands(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, brands)
}

func (s *HTTPServer) handleGetCar(w http.ResponseWriter, r *http.Request) {
	car, err := s.svc.Cars.GetCar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Car not found")
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (s *HTTPServer) handleCreateCar(w http.ResponseWriter, r *http.Request) {
	var req carRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, err, "")
		return
	}

	car := req.toCar()
	if err := s.svc.Cars.CreateCar(r.Context(), car); err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

func (s *HTTPServer) handleUpdateCar(w http.ResponseWriter, r *http.Request) {
	var patch carPatch
	if err := readJSON(w, r, &patch); err != nil {
		writeServiceError(w, err, "")
		return
	}

	car, err := s.svc.Cars.GetCar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Car not found")
		return
	}
	patch.apply(car)

	if err := s.svc.Cars.UpdateCar(r.Context(), car); err != nil {
		writeServiceError(w, err, "Car not found")
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (s *HTTPServer) handleDeleteCar(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Cars.DeleteCar(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "Car not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Car removed"})
}
