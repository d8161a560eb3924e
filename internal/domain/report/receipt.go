package report

import "time"

// MaxReceiptSize is the upload size limit for a single receipt file (10MB)
const MaxReceiptSize = 10 << 20

// allowedReceiptMimes is the restricted MIME set accepted for receipt uploads
var allowedReceiptMimes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"application/pdf": true,
}

// AllowedReceiptMime returns true if the content type may be uploaded
func AllowedReceiptMime(mime string) bool {
	return allowedReceiptMimes[mime]
}

// Receipt represents an uploaded receipt file attached to a report and
// optionally to one of its line items.
type Receipt struct {
	ID         int64     `json:"id"`
	ReportID   int64     `json:"report_id"`
	DetailID   *int64    `json:"detail_id,omitempty"`
	UploaderID string    `json:"uploader_id"`
	FileName   string    `json:"file_name"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type"`
	StorageKey string    `json:"storage_key"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DeletableBy returns true if the user may delete this receipt: the uploader
// themselves, or a user holding an elevated role.
func (r *Receipt) DeletableBy(actor Actor) bool {
	return r.UploaderID == actor.UserID || IsElevatedRole(actor.Role)
}
