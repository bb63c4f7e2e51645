package api

import (
	"net/http"

	"carrental/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.svc.Users.ListCustomers(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	if customers == nil {
		customers = []*models.User{}
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *HTTPServer) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Users.GetCustomerWithBookings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Customer not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
