package domain

import "time"

// Tenant represents an isolated customer scope. ID is the authoritative
// identity; Slug is a stable, URL-safe external alias that may appear in
// bookmarks and links.
type Tenant struct {
	ID                 int64
	Slug               string
	Name               string
	EmailFromName      string
	EmailFromAddress   string
	CustomDomain       string
	MailProviderDomain string
	MailProviderRegion string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
