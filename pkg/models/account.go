package models

import (
	"time"

	"github.com/google/uuid"
)

// Credentials authorize platform calls on behalf of one account.
type Credentials struct {
	AccessToken string `json:"-"`
}

// Account is a connected social platform account that owns reply jobs.
type Account struct {
	ID          uuid.UUID   `db:"id"           json:"id"`
	Handle      string      `db:"handle"       json:"handle"`
	Credentials Credentials `db:"access_token" json:"-"`
	CreatedAt   time.Time   `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"   json:"updated_at"`
}
