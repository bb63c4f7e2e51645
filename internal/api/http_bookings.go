package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"carrental/internal/auth"
	"carrental/internal/domain"
	"carrental/internal/export"
	"carrental/internal/models"

	"github.com/go-chi/chi/v5"
)

type createBookingRequest struct {
	CarID     string `json:"carId" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, err, "")
		return
	}

	actor, _ := auth.ActorFromContext(r.Context())
	booking, err := s.svc.Bookings.CreateBooking(r.Context(), actor, req.CarID, req.StartDate, req.EndDate)
	if err != nil {
		writeServiceError(w, err, "Car not found")
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNilBookings(bookings))
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	bookings, err := s.svc.Bookings.ListForCustomer(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, nonNilBookings(bookings))
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quote, err := s.svc.Bookings.Quote(r.Context(), q.Get("carId"), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeServiceError(w, err, "Car not found")
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	stats, err := s.svc.Stats.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}

	filename := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.Write(w, bookings, stats); err != nil {
		s.log.Error().Err(err).Msg("write export")
	}
}

func (s *HTTPServer) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, err, "")
		return
	}

	booking, err := s.svc.Bookings.SetStatus(r.Context(), chi.URLParam(r, "id"), models.BookingStatus(req.Status))
	if err != nil {
		writeServiceError(w, err, "Booking not found")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	booking, err := s.svc.Bookings.Cancel(r.Context(), actor, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not authorized to cancel this booking")
		return
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "Cannot cancel this booking")
		return
	case err != nil:
		writeServiceError(w, err, "Booking not found")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func nonNilBookings(bookings []*models.BookingDetails) []*models.BookingDetails {
	if bookings == nil {
		return []*models.BookingDetails{}
	}
	return bookings
}
