package model

// UploadRequest carries an image as a data URL or a bare base64 string.
type UploadRequest struct {
	Image       string `json:"image"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
}

type UploadResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Blob describes a stored object.
type Blob struct {
	Name        string
	URL         string
	ContentType string
	Size        int64
}
