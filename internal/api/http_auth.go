package api

import (
	"net/http"

	"carrental/internal/auth"
	"carrental/internal/models"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
	Role     string `json:"role" validate:"omitempty,oneof=owner customer"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, err, "")
		return
	}

	user, token, err := s.svc.Users.Register(r.Context(), req.Name, req.Email, req.Password, req.Phone, models.Role(req.Role))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		writeServiceError(w, err, "")
		return
	}

	user, token, err := s.svc.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	user, err := s.svc.Users.Profile(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
