package models

import "time"

type Role string

const (
	RoleOwner    Role = "owner"
	RoleCustomer Role = "customer"
)

func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleCustomer
}

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Role         Role      `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// Redacted returns a copy safe to embed in responses.
func (u *User) Redacted() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp
}

func (u *User) IsOwner() bool {
	return u != nil && u.Role == RoleOwner
}

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsOwner() bool {
	return a.Role == RoleOwner
}

// CustomerWithBookings is the owner's view of one customer's history.
type CustomerWithBookings struct {
	Customer *User             `json:"customer"`
	Bookings []*BookingDetails `json:"bookings"`
}
