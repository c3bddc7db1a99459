package models

import "time"

type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"password,omitempty" db:"password"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserItem — сохраненная привязка пользователя к внешнему агрегатору
// (токен доступа от сессии линковки). По ней работает фоновая синхронизация.
type UserItem struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	AccessToken string    `json:"-" db:"access_token"`
	Institution *string   `json:"institution,omitempty" db:"institution"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
