package components

import "greenscreen/internal/component"

// RegisterAll wires every business component into the registry. The
// green-screen connector registers itself separately; this package stays
// ignorant of it.
func RegisterAll(r *component.Registry) {
	r.Register(CalculatorType, func() component.Component { return NewCalculator() })
	r.Register(DatabaseType, func() component.Component { return NewDatabase() })
	r.Register(HTTPCallType, func() component.Component { return NewHTTPCall() })
	r.Register(ApprovalType, func() component.Component { return NewApproval() })
	r.Register(EmailType, func() component.Component { return NewEmail() })
	r.Register(DecisionType, func() component.Component { return NewDecision() })
}
