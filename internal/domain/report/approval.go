package report

import "time"

// ApprovalLine represents one approver's slot in a report's sequential
// sign-off chain. Approver name and position are snapshots captured when the
// line was created, not live lookups.
type ApprovalLine struct {
	ID               int64      `json:"id"`
	ReportID         int64      `json:"report_id"`
	Position         int        `json:"position"`
	ApproverID       string     `json:"approver_id"`
	ApproverName     string     `json:"approver_name"`
	ApproverPosition string     `json:"approver_position"`
	Status           string     `json:"status"`
	SignatureData    string     `json:"signature_data,omitempty"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Signed returns true if the approver has produced a signature image
func (l *ApprovalLine) Signed() bool {
	return l.SignatureData != ""
}

// BackupApprover is one candidate in a user's configured backup-approver
// pool, the source for "add another approver".
type BackupApprover struct {
	ID               int64  `json:"id"`
	OwnerID          string `json:"owner_id"`
	ApproverID       string `json:"approver_id"`
	ApproverName     string `json:"approver_name"`
	ApproverPosition string `json:"approver_position"`
}
