package service

import "errors"

var (
	// ErrNoCompleteItems is returned when a submission carries no line item
	// that passes completeness validation
	ErrNoCompleteItems = errors.New("no complete line items to submit")

	// ErrNoApprovers is returned when a submission outside the no-approval
	// category names no approvers
	ErrNoApprovers = errors.New("at least one approver is required")

	// ErrBlankReason is returned when a rejection or an amount-difference
	// justification is blank
	ErrBlankReason = errors.New("a non-blank reason is required")

	// ErrNoReceipts is returned when payment completion is attempted on a
	// report with no receipts attached
	ErrNoReceipts = errors.New("at least one receipt must be attached before payment")

	// ErrReceiptTooLarge is returned for uploads over the size limit
	ErrReceiptTooLarge = errors.New("receipt file exceeds the 10MB limit")

	// ErrUnsupportedMime is returned for uploads outside the allowed MIME set
	ErrUnsupportedMime = errors.New("receipt file type not allowed")

	// ErrApproverPresent is returned when adding an approver who already
	// holds a line on the report
	ErrApproverPresent = errors.New("approver already present on this report")

	// ErrNoBackupCandidate is returned when the requester's backup pool has
	// no usable candidate left
	ErrNoBackupCandidate = errors.New("no backup approver candidate available")

	// ErrAmbiguousCandidate is returned when the pool holds several
	// candidates and none was named explicitly
	ErrAmbiguousCandidate = errors.New("several backup candidates available, one must be chosen")

	// ErrInvalidCandidate is returned when a backup-pool registration is
	// blank or names the owner themselves
	ErrInvalidCandidate = errors.New("backup candidate must name another user")

	// ErrCandidateRegistered is returned when the candidate is already in
	// the owner's backup pool
	ErrCandidateRegistered = errors.New("backup candidate already registered")

	// ErrNotDeletable is returned when a user who is neither the uploader
	// nor elevated tries to delete a receipt
	ErrNotDeletable = errors.New("only the uploader or an administrator may delete this receipt")

	// ErrConflict is returned when the stored state no longer admits the
	// requested action; the caller should re-fetch and retry manually
	ErrConflict = errors.New("report state has changed, reload and try again")
)
