package model

import (
	"time"

	"clubsite/internal/apperr"
)

// Content schema versions. A document carries exactly one of them.
const (
	ContentSchemaSchedule  = 1 // flat walkingSchedule
	ContentSchemaCommittee = 2 // committee + walkingStats
)

type WalkingSchedule struct {
	SundaySummer string `json:"sundaySummer"`
	SundayWinter string `json:"sundayWinter"`
	Tuesday      string `json:"tuesday"`
}

type CommitteeMember struct {
	Position string `json:"position"`
	Name     string `json:"name"`
}

type Committee struct {
	Title   string            `json:"title"`
	Members []CommitteeMember `json:"members"`
}

type WalkingStats struct {
	YearsActive  string `json:"yearsActive"`
	Members      string `json:"members"`
	WalksPerWeek string `json:"walksPerWeek"`
}

type ClubContent struct {
	SchemaVersion    int              `json:"schemaVersion,omitempty"`
	ClubDescription  string           `json:"clubDescription" validate:"required"`
	WalkingSchedule  *WalkingSchedule `json:"walkingSchedule,omitempty" validate:"required_without=Committee,excluded_with=Committee"`
	Committee        *Committee       `json:"committee,omitempty" validate:"required_without=WalkingSchedule,excluded_with=WalkingSchedule"`
	WalkingStats     *WalkingStats    `json:"walkingStats,omitempty" validate:"excluded_with=WalkingSchedule"`
	ClubImageCaption string           `json:"clubImageCaption,omitempty"`
	LastUpdated      time.Time        `json:"lastUpdated"`
}

// MigrateContent sets SchemaVersion on documents written before the field
// existed, inferring it from the schedule representation present.
func MigrateContent(c *ClubContent) {
	if c.SchemaVersion != 0 {
		return
	}
	switch {
	case c.WalkingSchedule != nil:
		c.SchemaVersion = ContentSchemaSchedule
	case c.Committee != nil:
		c.SchemaVersion = ContentSchemaCommittee
	}
}

func (c *ClubContent) Validate() error {
	if err := Validate(c); err != nil {
		return err
	}
	// The version always follows the representation actually sent.
	c.SchemaVersion = 0
	MigrateContent(c)
	return nil
}

type RecurringEvent struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Day     string `json:"day"`
	Time    string `json:"time"`
	Message string `json:"message,omitempty"`
}

type SpecialEvent struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Message string `json:"message,omitempty"`
}

type EventsData struct {
	RecurringEvents []RecurringEvent `json:"recurringEvents" validate:"required"`
	SpecialEvents   []SpecialEvent   `json:"specialEvents" validate:"required"`
	LastUpdated     *time.Time       `json:"lastUpdated,omitempty"`
}

func (e *EventsData) Validate() error {
	if err := Validate(e); err != nil {
		return err
	}
	seen := map[int]bool{}
	for _, ev := range e.RecurringEvents {
		if seen[ev.ID] {
			return apperr.Invalid("recurringEvents", "ids must be unique")
		}
		seen[ev.ID] = true
	}
	seen = map[int]bool{}
	for _, ev := range e.SpecialEvents {
		if seen[ev.ID] {
			return apperr.Invalid("specialEvents", "ids must be unique")
		}
		seen[ev.ID] = true
	}
	return nil
}

// GalleryMeta is one photo gallery. ID and CreatedAt are assigned by the server.
type GalleryMeta struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Date        string    `json:"date" validate:"required"`
	Location    string    `json:"location" validate:"required"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (g *GalleryMeta) Validate() error {
	if g.Images == nil {
		g.Images = []string{}
	}
	return Validate(g)
}

type EmailConfig struct {
	InquiryEmail  string    `json:"inquiryEmail" validate:"required"`
	SubjectPrefix string    `json:"subjectPrefix"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

type Link struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type LinksData struct {
	Links       []Link     `json:"links" validate:"required"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

type NewsItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
	Image   string `json:"image,omitempty"`
}

type NewsData struct {
	NewsItems   []NewsItem `json:"newsItems" validate:"required"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}
