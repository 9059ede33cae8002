// Package clinics handles tenant registration and clinic-level reporting.
package clinics

import (
	"strings"
	"time"

	"github.com/clinigo/platform/internal/plans"
)

// Address is the clinic's postal address as collected by the registration
// wizard.
type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
}

// Clinic is a tenant organization.
type Clinic struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	TaxID     string     `json:"tax_id,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Plan      plans.Plan `json:"plan"`
	Address   Address    `json:"address"`
	CreatedAt time.Time  `json:"created_at"`
}

// slugReplacer folds the accented characters common in clinic names to
// their ASCII equivalents before slugging.
var slugReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n",
)

// Slugify derives a URL slug from a clinic name: lowercase, diacritics
// folded, runs of non-alphanumerics collapsed to single hyphens.
func Slugify(name string) string {
	s := slugReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
