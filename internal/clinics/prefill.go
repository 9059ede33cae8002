package clinics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	prefillTimeout   = 15 * time.Second
	prefillUserAgent = "Mozilla/5.0"
	maxPrefillBody   = 2 << 20
)

// PrefillResult carries the clinic details guessed from a public website,
// used to pre-populate the registration wizard.
type PrefillResult struct {
	Name       string   `json:"name,omitempty"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Address    string   `json:"address,omitempty"`
	WebsiteURL string   `json:"website_url,omitempty"`
	Sources    []string `json:"sources,omitempty"`
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\(?\+?\d{2,3}\)?[\s.\-]?\(?\d{2,5}\)?[\s.\-]?\d{4,5}(?:[\s.\-]?\d{4})?`)
)

// ScrapeClinicPrefill fetches the clinic homepage and contact page and
// extracts name, email and phone on a best-effort basis.
func ScrapeClinicPrefill(ctx context.Context, rawURL string) (*PrefillResult, error) {
	baseURL, err := normalizePrefillURL(rawURL)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: prefillTimeout}

	baseTitle, baseText, err := fetchPage(ctx, client, baseURL)
	if err != nil {
		return nil, fmt.Errorf("clinics: fetch website: %w", err)
	}
	contactURL := baseURL + "/contato"
	_, contactText, contactErr := fetchPage(ctx, client, contactURL)
	if contactErr != nil {
		contactText = ""
	}

	result := &PrefillResult{
		Name:       firstNonEmpty(cleanTitle(baseTitle), deriveNameFromHost(baseURL)),
		WebsiteURL: baseURL,
		Sources:    []string{baseURL},
	}
	if contactErr == nil {
		result.Sources = append(result.Sources, contactURL)
	}

	text := contactText
	if text == "" {
		text = baseText
	}
	result.Email = emailRe.FindString(text)
	result.Phone = strings.TrimSpace(phoneRe.FindString(text))

	return result, nil
}

func normalizePrefillURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("website_url is required")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return "", fmt.Errorf("website_url is invalid")
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}

// fetchPage downloads a page and returns its title plus visible text.
func fetchPage(ctx context.Context, client *http.Client, target string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", prefillUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPrefillBody))
	if err != nil {
		return "", "", err
	}

	var title string
	var text strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if n.FirstChild != nil && title == "" {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				text.WriteString(s)
				text.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, text.String(), nil
}

// cleanTitle strips page-suffix noise like "Home | Clínica X".
func cleanTitle(title string) string {
	parts := strings.FieldsFunc(title, func(r rune) bool { return r == '|' || r == '-' })
	best := ""
	for _, part := range parts {
		part = strings.TrimSpace(part)
		lower := strings.ToLower(part)
		if part == "" || strings.Contains(lower, "home") || strings.Contains(lower, "contato") || strings.Contains(lower, "contact") {
			continue
		}
		if len(part) > len(best) {
			best = part
		}
	}
	return best
}

func deriveNameFromHost(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	host = strings.ReplaceAll(host, "-", " ")
	return titleize(host)
}

func titleize(raw string) string {
	words := strings.Fields(raw)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
