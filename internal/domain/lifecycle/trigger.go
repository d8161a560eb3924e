package lifecycle

// Trigger represents an action that can cause a lifecycle transition
type Trigger string

const (
	// Report-level triggers
	TriggerSubmit       Trigger = "SUBMIT"        // drafter submits with approvers
	TriggerSubmitDirect Trigger = "SUBMIT_DIRECT" // no-approval category, straight to APPROVED
	TriggerComplete     Trigger = "COMPLETE"      // last pending line signed
	TriggerResubmit     Trigger = "RESUBMIT"      // drafter edits a rejected report

	// Line-level triggers (REJECT and CANCEL_REJECTION also move the report)
	TriggerSign            Trigger = "SIGN"
	TriggerReject          Trigger = "REJECT"
	TriggerCancelApproval  Trigger = "CANCEL_APPROVAL"
	TriggerCancelRejection Trigger = "CANCEL_REJECTION"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
