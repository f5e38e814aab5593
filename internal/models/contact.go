package models

import "time"

// User is the persisted directory record.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Org          string    `db:"org" json:"org,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Contact is the directory entry as the chat client sees it: one entry per
// known user, with presence and the last-message summary merged in.
type Contact struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	IsOnline        bool       `json:"isOnline"`
	LastMessage     string     `json:"lastMessage,omitempty"`
	LastMessageTime *time.Time `json:"lastMessageTime,omitempty"`
}

// ContactFromUser strips credentials off a directory record.
func ContactFromUser(u User) Contact {
	return Contact{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
