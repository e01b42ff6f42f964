package domain

import (
	"time"

	"github.com/google/uuid"
)

const RoleAdmin = "admin"

type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
	Role  string    `json:"role,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type WatchlistEntry struct {
	UserID   uuid.UUID `json:"userId"`
	ItemID   string    `json:"itemId"`
	Title    string    `json:"title,omitempty"`
	Category Category  `json:"category,omitempty"`
	ImageURL string    `json:"imageUrl,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
}
