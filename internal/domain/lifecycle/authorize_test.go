package lifecycle

import (
	"errors"
	"testing"

	"github.com/jwkim/expenseflow/internal/domain/report"
)

func TestAuthorize_NonMemberApproverCannotAct(t *testing.T) {
	r := waitingReport(&report.ApprovalLine{ApproverID: "mgr", Status: report.StatusWait})
	outsider := report.Actor{UserID: "intruder", Role: report.RoleEmployee}

	for _, trigger := range []Trigger{TriggerSign, TriggerReject, TriggerCancelApproval, TriggerCancelRejection} {
		if err := Authorize(trigger, outsider, r); !errors.Is(err, ErrNotAuthorized) {
			t.Errorf("Authorize(%s) for non-member = %v, want ErrNotAuthorized", trigger, err)
		}
	}
}

func TestAuthorize_StandingRejectionBlocksOthers(t *testing.T) {
	r := waitingReport(
		&report.ApprovalLine{ApproverID: "a", Status: report.StatusWait},
		&report.ApprovalLine{ApproverID: "b", Status: report.StatusRejected},
	)

	err := Authorize(TriggerSign, report.Actor{UserID: "a"}, r)
	if !errors.Is(err, ErrRejectionPending) {
		t.Errorf("Authorize(SIGN) blocked by rejection = %v, want ErrRejectionPending", err)
	}

	// The rejecting approver may still act (to cancel their own rejection)
	if err := Authorize(TriggerCancelRejection, report.Actor{UserID: "b"}, r); err != nil {
		t.Errorf("Authorize(CANCEL_REJECTION) by author = %v, want nil", err)
	}
}

func TestAuthorize_CancelApprovalRequiresOwnApprovedLine(t *testing.T) {
	r := waitingReport(
		&report.ApprovalLine{ApproverID: "a", Status: report.StatusApproved, SignatureData: "sig"},
		&report.ApprovalLine{ApproverID: "b", Status: report.StatusWait},
	)

	if err := Authorize(TriggerCancelApproval, report.Actor{UserID: "a"}, r); err != nil {
		t.Errorf("Authorize(CANCEL_APPROVAL) by owner = %v, want nil", err)
	}
	if err := Authorize(TriggerCancelApproval, report.Actor{UserID: "b"}, r); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Authorize(CANCEL_APPROVAL) without approved line = %v, want ErrNotAuthorized", err)
	}
}

func TestAuthorizeAddApprover(t *testing.T) {
	signed := &report.ApprovalLine{ApproverID: "a", Status: report.StatusApproved, SignatureData: "sig"}
	unsigned := &report.ApprovalLine{ApproverID: "a", Status: report.StatusWait}

	tests := []struct {
		name    string
		r       *report.ExpenseReport
		actor   report.Actor
		wantErr bool
	}{
		{"first line signed, requester present", waitingReport(signed), report.Actor{UserID: "a"}, false},
		{"first line unsigned", waitingReport(unsigned), report.Actor{UserID: "a"}, true},
		{"requester not in chain", waitingReport(signed), report.Actor{UserID: "x"}, true},
		{
			"rejected report",
			&report.ExpenseReport{Status: report.StatusRejected, ApprovalLines: []*report.ApprovalLine{signed}},
			report.Actor{UserID: "a"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeAddApprover(tt.actor, tt.r)
			if (err != nil) != tt.wantErr {
				t.Errorf("AuthorizeAddApprover() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthorizeEdit(t *testing.T) {
	base := func() *report.ExpenseReport {
		return &report.ExpenseReport{
			ID:        7,
			DrafterID: "drafter",
			Status:    report.StatusWait,
			ApprovalLines: []*report.ApprovalLine{
				{ApproverID: "a", Status: report.StatusWait},
			},
		}
	}

	r := base()
	if err := AuthorizeEdit(report.Actor{UserID: "drafter"}, r); err != nil {
		t.Errorf("edit of unsigned WAIT report = %v, want nil", err)
	}
	if err := AuthorizeEdit(report.Actor{UserID: "other"}, r); err == nil {
		t.Error("edit by non-drafter should fail")
	}

	r = base()
	r.ApprovalLines[0].Status = report.StatusApproved
	r.ApprovalLines[0].SignatureData = "sig"
	if err := AuthorizeEdit(report.Actor{UserID: "drafter"}, r); err == nil {
		t.Error("edit with signature present should fail")
	}

	// A rejected report is editable again even with a signature elsewhere
	r.Status = report.StatusRejected
	if err := AuthorizeEdit(report.Actor{UserID: "drafter"}, r); err != nil {
		t.Errorf("edit of REJECTED report = %v, want nil", err)
	}

	r.TaxCollected = true
	if err := AuthorizeEdit(report.Actor{UserID: "drafter"}, r); err == nil {
		t.Error("edit after tax collection should fail")
	}
}

func TestAuthorizePayment(t *testing.T) {
	r := &report.ExpenseReport{ID: 3, Status: report.StatusApproved}

	if err := AuthorizePayment(report.Actor{UserID: "p", Role: report.RolePayment}, r); err != nil {
		t.Errorf("payment by payment role = %v, want nil", err)
	}
	if err := AuthorizePayment(report.Actor{UserID: "e", Role: report.RoleEmployee}, r); err == nil {
		t.Error("payment by employee role should fail")
	}

	r.Status = report.StatusWait
	if err := AuthorizePayment(report.Actor{UserID: "p", Role: report.RolePayment}, r); err == nil {
		t.Error("payment on unapproved report should fail")
	}
}
