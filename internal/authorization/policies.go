package authorization

const (
	ObjectUser         = "user"
	ObjectMember       = "member"
	ObjectEmployer     = "employer"
	ObjectProvider     = "provider"
	ObjectBenefit      = "benefit"
	ObjectContribution = "contribution"
	ObjectPreAuth      = "preauth"
	ObjectClaim        = "claim"
	ObjectPayment      = "payment"
	ObjectEligibility  = "eligibility"
	ObjectAuditLog     = "audit_log"
	ObjectNotification = "notification"
	ObjectReport       = "report"
	ObjectDashboard    = "dashboard"
	ObjectReference    = "reference"
)

const (
	ActionView     = "view"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionReview   = "review"
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionAdjust   = "adjust"
	ActionSubmit   = "submit"
	ActionRequest  = "request"
	ActionExpire   = "expire"
	ActionComplete = "complete"
	ActionFail     = "fail"
	ActionReverse  = "reverse"
	ActionCheck    = "check"
	ActionGenerate = "generate"
)

const wildcard = "*"

func roleSubject(role string) string {
	return "role:" + role
}

func grant(role, object string, actions ...string) [][]string {
	out := make([][]string, 0, len(actions))
	for _, act := range actions {
		out = append(out, []string{roleSubject(role), object, act})
	}
	return out
}

// defaultPolicies is the per-role permission matrix. ADMIN and the
// in-process system actor hold every permission.
func defaultPolicies() [][]string {
	var rules [][]string
	add := func(r [][]string) { rules = append(rules, r...) }

	add(grant("ADMIN", wildcard, wildcard))
	add(grant("SYSTEM", wildcard, wildcard))

	for _, obj := range []string{ObjectMember, ObjectEmployer, ObjectProvider, ObjectBenefit} {
		add(grant("SHA_OFFICER", obj, ActionView, ActionCreate, ActionUpdate))
	}
	for _, obj := range []string{ObjectContribution, ObjectClaim, ObjectPreAuth, ObjectPayment} {
		add(grant("SHA_OFFICER", obj, ActionView))
	}
	add(grant("SHA_OFFICER", ObjectEligibility, ActionCheck, ActionView))
	add(grant("SHA_OFFICER", ObjectDashboard, ActionView))
	add(grant("SHA_OFFICER", ObjectReport, ActionGenerate, ActionView))
	add(grant("SHA_OFFICER", ObjectAuditLog, ActionView))

	add(grant("CLAIMS_OFFICER", ObjectClaim, ActionView, ActionReview, ActionApprove, ActionReject, ActionAdjust))
	add(grant("CLAIMS_OFFICER", ObjectPreAuth, ActionView, ActionApprove, ActionReject, ActionExpire))
	add(grant("CLAIMS_OFFICER", ObjectEligibility, ActionCheck, ActionView))
	for _, obj := range []string{ObjectMember, ObjectProvider, ObjectBenefit, ObjectDashboard} {
		add(grant("CLAIMS_OFFICER", obj, ActionView))
	}

	add(grant("FINANCE_OFFICER", ObjectPayment, ActionView, ActionCreate, ActionComplete, ActionFail))
	add(grant("FINANCE_OFFICER", ObjectContribution, ActionView, ActionCreate, ActionComplete, ActionFail, ActionReverse))
	add(grant("FINANCE_OFFICER", ObjectClaim, ActionView))
	add(grant("FINANCE_OFFICER", ObjectReport, ActionGenerate, ActionView))
	add(grant("FINANCE_OFFICER", ObjectDashboard, ActionView))

	add(grant("PROVIDER", ObjectClaim, ActionSubmit, ActionView))
	add(grant("PROVIDER", ObjectPreAuth, ActionRequest, ActionView))
	add(grant("PROVIDER", ObjectEligibility, ActionCheck, ActionView))
	add(grant("PROVIDER", ObjectMember, ActionView))
	add(grant("PROVIDER", ObjectBenefit, ActionView))

	add(grant("EMPLOYER", ObjectContribution, ActionCreate, ActionView))
	add(grant("EMPLOYER", ObjectMember, ActionView))

	add(grant("MEMBER", ObjectBenefit, ActionView))

	for _, role := range []string{"SHA_OFFICER", "EMPLOYER", "PROVIDER", "MEMBER", "CLAIMS_OFFICER", "FINANCE_OFFICER"} {
		add(grant(role, ObjectNotification, ActionView, ActionUpdate))
	}
	return rules
}
