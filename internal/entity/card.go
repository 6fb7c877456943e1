package entity

import (
	"strings"
	"time"
)

// CardFields is the best-effort structured output of a field extractor.
// An empty string means the field was not found.
type CardFields struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Country string `json:"country"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (f CardFields) Trimmed() CardFields {
	return CardFields{
		Name:    strings.TrimSpace(f.Name),
		Phone:   strings.TrimSpace(f.Phone),
		Email:   strings.TrimSpace(f.Email),
		Company: strings.TrimSpace(f.Company),
		Country: strings.TrimSpace(f.Country),
	}
}

// Usable reports whether at least one of name, email, phone or company is present.
func (f CardFields) Usable() bool {
	t := f.Trimmed()
	return t.Name != "" || t.Email != "" || t.Phone != "" || t.Company != ""
}

// EventInfo is optional metadata shared by every card of one upload batch.
type EventInfo struct {
	Name        string `json:"event_name"`
	Description string `json:"event_description"`
	Host        string `json:"event_host"`
	Date        string `json:"event_date"`
	Location    string `json:"event_location"`
}

// Card is a stored business card record.
type Card struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Company     string    `json:"company"`
	Website     string    `json:"website"`
	Designation string    `json:"designation"`
	Country     string    `json:"country"`
	Flag        string    `json:"flag"`
	IsSorted    bool      `json:"is_sorted"`
	LabelID     *string   `json:"label_id,omitempty"`
	LabelName   *string   `json:"label_name,omitempty"`
	Event       EventInfo `json:"event"`
	Filename    string    `json:"filename"`
	ImageMime   string    `json:"image_mime,omitempty"`
	Image       []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasLabel reports whether the card references a label.
func (c *Card) HasLabel() bool {
	return c.LabelID != nil && *c.LabelID != ""
}

// LabelDisplay is the label name, or "" when the card is unlabeled.
func (c *Card) LabelDisplay() string {
	if c.LabelName == nil {
		return ""
	}
	return *c.LabelName
}

// HasImage reports whether an image payload is attached.
func (c *Card) HasImage() bool {
	return len(c.Image) > 0
}
