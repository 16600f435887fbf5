// Package auth verifies Telegram Mini App credentials and issues the signed
// session tokens consumed by the HTTP middleware.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tonstake/pollhouse/internal/domain"
)

// TelegramUser is the user payload embedded in WebApp init data.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	PhotoURL     string `json:"photo_url"`
	IsPremium    bool   `json:"is_premium"`
}

// webAppDataKey is the fixed HMAC key prescribed by the Telegram Mini App
// validation scheme: the bot token is first keyed with this constant and the
// result signs the data-check-string.
const webAppDataKey = "WebAppData"

// ValidateInitData checks the HMAC signature and freshness of raw WebApp init
// data (the query-string form handed to the Mini App) and returns the embedded
// Telegram user. maxAge bounds auth_date; zero disables the freshness check.
// All failures wrap domain.ErrUnauthorized.
func ValidateInitData(raw, botToken string, maxAge time.Duration) (TelegramUser, error) {
	params, err := url.ParseQuery(raw)
	if err != nil {
		return TelegramUser{}, fmt.Errorf("auth: malformed init data: %w", domain.ErrUnauthorized)
	}

	gotHash := params.Get("hash")
	if gotHash == "" {
		return TelegramUser{}, fmt.Errorf("auth: init data hash missing: %w", domain.ErrUnauthorized)
	}

	authDate := params.Get("auth_date")
	if authDate == "" {
		return TelegramUser{}, fmt.Errorf("auth: init data auth_date missing: %w", domain.ErrUnauthorized)
	}
	if maxAge > 0 {
		ts, err := strconv.ParseInt(authDate, 10, 64)
		if err != nil {
			return TelegramUser{}, fmt.Errorf("auth: init data auth_date invalid: %w", domain.ErrUnauthorized)
		}
		if time.Since(time.Unix(ts, 0)) > maxAge {
			return TelegramUser{}, fmt.Errorf("auth: init data expired: %w", domain.ErrUnauthorized)
		}
	}

	if subtle.ConstantTimeCompare([]byte(gotHash), []byte(computeInitDataHash(params, botToken))) != 1 {
		return TelegramUser{}, fmt.Errorf("auth: init data signature mismatch: %w", domain.ErrUnauthorized)
	}

	userJSON := params.Get("user")
	if userJSON == "" {
		return TelegramUser{}, fmt.Errorf("auth: init data has no user: %w", domain.ErrUnauthorized)
	}
	var user TelegramUser
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil || user.ID == 0 {
		return TelegramUser{}, fmt.Errorf("auth: init data user invalid: %w", domain.ErrUnauthorized)
	}
	return user, nil
}

// computeInitDataHash builds the data-check-string (sorted key=value lines,
// hash excluded) and signs it per the Telegram scheme.
func computeInitDataHash(params url.Values, botToken string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+params.Get(k))
	}
	dataCheck := strings.Join(lines, "\n")

	secret := hmacSHA256([]byte(webAppDataKey), []byte(botToken))
	return hex.EncodeToString(hmacSHA256(secret, []byte(dataCheck)))
}

func hmacSHA256(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
