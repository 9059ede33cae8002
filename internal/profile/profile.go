// Package profile implements staff self-service for the logged-in user:
// contact details, notification channels, preferences, password changes,
// avatar upload and account deletion.
package profile

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("profile: user not found")

// Profile is the editable slice of a staff user account.
type Profile struct {
	UserID    string    `json:"user_id"`
	ClinicID  string    `json:"clinic_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	AvatarKey string    `json:"avatar_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification channels a user can opt into.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// NotificationSettings controls which channels reach the user.
type NotificationSettings struct {
	Channels         []string `json:"channels"`
	RemindersEnabled bool     `json:"reminders_enabled"`
	DigestEnabled    bool     `json:"digest_enabled"`
}

// ValidChannel reports whether ch is a known notification channel.
func ValidChannel(ch string) bool {
	switch ch {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp:
		return true
	}
	return false
}

// Preferences holds display settings for the staff dashboard.
type Preferences struct {
	Language     string `json:"language"`
	Timezone     string `json:"timezone"`
	CalendarView string `json:"calendar_view"`
}
