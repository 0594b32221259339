package model

import "time"

// SourceHeader on a document GET says where the server got the document:
// "store", "default" (nothing saved yet) or "fallback" (the store could not
// be read).
const SourceHeader = "X-Document-Source"

// Defaults parameterizes the documents served before anything is saved.
type Defaults struct {
	ClubName        string
	ClubDescription string
	InquiryEmail    string
}

// ClubDefaults are used when nothing else is configured.
var ClubDefaults = Defaults{
	ClubName:        "Walk4Health",
	ClubDescription: "In the Hutt Valley we are blessed with some of the best walking areas in New Zealand with the beautiful river trail, etc.",
	InquiryEmail:    "admin@walk4health.co.nz",
}

func (d Defaults) SubjectPrefix() string {
	return "[" + d.ClubName + "]"
}

func (d Defaults) Content(now time.Time) ClubContent {
	return ClubContent{
		SchemaVersion:   ContentSchemaSchedule,
		ClubDescription: d.ClubDescription,
		WalkingSchedule: &WalkingSchedule{
			SundaySummer: "09:00",
			SundayWinter: "09:30",
			Tuesday:      "10:00",
		},
		LastUpdated: now,
	}
}

func (d Defaults) EmailConfig(now time.Time) EmailConfig {
	return EmailConfig{
		InquiryEmail:  d.InquiryEmail,
		SubjectPrefix: d.SubjectPrefix(),
		LastUpdated:   now,
	}
}

func DefaultEvents() EventsData {
	return EventsData{RecurringEvents: []RecurringEvent{}, SpecialEvents: []SpecialEvent{}}
}

func DefaultLinks() LinksData { return LinksData{Links: []Link{}} }

func DefaultNews() NewsData { return NewsData{NewsItems: []NewsItem{}} }

type SaveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type GalleryResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Gallery *GalleryMeta `json:"gallery,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusResponse is served by the diagnostics endpoint. It never carries
// credential values, only whether they are set.
type StatusResponse struct {
	Environment string            `json:"environment"`
	Hostname    string            `json:"hostname"`
	Timestamp   time.Time         `json:"timestamp"`
	Store       string            `json:"store"`
	Documents   map[string]string `json:"documents"`
	Message     string            `json:"message"`
}
