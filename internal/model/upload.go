package model

// UploadedFile describes an image written to the upload directory.
// It is not persisted in the database.
type UploadedFile struct {
	FieldName    string `json:"field_name"`
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name"`
	Path         string `json:"-"`
	URL          string `json:"url"`
	MIMEType     string `json:"mime_type"`
	Size         int64  `json:"size"`
}
