package domain

import "time"

// User is an account created on first successful Telegram login and updated
// on every subsequent one. Users are never deleted.
type User struct {
	ID            string    `json:"id"`
	TelegramID    int64     `json:"telegramId"`
	Username      string    `json:"username,omitempty"`
	FirstName     string    `json:"firstName,omitempty"`
	LastName      string    `json:"lastName,omitempty"`
	PhotoURL      string    `json:"photoUrl,omitempty"`
	LanguageCode  string    `json:"languageCode,omitempty"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	LastLoginAt   time.Time `json:"lastLoginAt"`
}
