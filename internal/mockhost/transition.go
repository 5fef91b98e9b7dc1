package mockhost

import (
	"fmt"
	"strings"

	"greenscreen/internal/dict"
	"greenscreen/internal/tn5250"
)

// Session is the per-connection navigation state. One session owns one
// socket and one evaluator; nothing here is shared across connections.
type Session struct {
	CurrentScreen   string
	IsAuthenticated bool
	UserID          string
	Data            dict.Dictionary
}

// NewSession starts at the navigation config's initial screen.
func NewSession(initialScreen string) *Session {
	return &Session{CurrentScreen: initialScreen, Data: dict.New()}
}

// ResetIdentity clears auth state and accumulated data, as happens when
// the operator signs off back to the initial screen.
func (s *Session) ResetIdentity() {
	s.IsAuthenticated = false
	s.UserID = ""
	s.Data = dict.New()
}

// TransitionResult is the evaluator's verdict for one input record.
type TransitionResult struct {
	Success     bool
	Target      string
	Error       string
	DataUpdates map[string]string
}

// Evaluator matches input records against the navigation rules. Each
// session owns its own instance; the config, credential list and data
// store behind it are read-only.
type Evaluator struct {
	nav   *NavigationConfig
	store *DataStore
}

// NewEvaluator builds an evaluator over the shared read-only config.
func NewEvaluator(nav *NavigationConfig, store *DataStore) *Evaluator {
	return &Evaluator{nav: nav, store: store}
}

// Evaluate finds the first rule matching (current screen, AID, conditions)
// and applies its validation hook. Condition checks for "empty" and
// "not_empty" read the current input only; session data is deliberately
// not consulted, so a value remembered from an earlier screen can never
// satisfy a freshness check.
func (e *Evaluator) Evaluate(sess *Session, aid byte, input map[string]string) TransitionResult {
	aidName := tn5250.AIDName(aid)
	for _, rule := range e.nav.Transitions {
		if rule.SourceScreen != sess.CurrentScreen || rule.AIDKey != aidName {
			continue
		}
		if !conditionsMatch(rule.Conditions, input) {
			continue
		}

		// The rule matched. An error rule or a failed validation hook both
		// end evaluation here; later rules are not consulted.
		if rule.ErrorMessage != "" {
			return TransitionResult{Success: false, Error: rule.ErrorMessage}
		}
		if msg := e.runValidation(rule, input); msg != "" {
			return TransitionResult{Success: false, Error: msg}
		}

		updates := map[string]string{}
		for k, v := range rule.SetData {
			updates[k] = v
		}
		for k, v := range input {
			if dict.IsSensitiveKey(k) {
				continue
			}
			updates[k] = v
		}
		return TransitionResult{Success: true, Target: rule.TargetScreen, DataUpdates: updates}
	}
	return TransitionResult{Success: false, Error: fmt.Sprintf("Invalid key: %s", aidName)}
}

func conditionsMatch(conditions map[string]string, input map[string]string) bool {
	for field, want := range conditions {
		value, present := input[field]
		value = strings.TrimSpace(value)
		switch want {
		case "empty":
			if value != "" {
				return false
			}
		case "not_empty":
			if !present || value == "" {
				return false
			}
		default:
			if !strings.EqualFold(value, want) {
				return false
			}
		}
	}
	return true
}

// runValidation returns an error message, or "" when the hook passes.
func (e *Evaluator) runValidation(rule TransitionRule, input map[string]string) string {
	switch rule.Validation {
	case ValidationCredentials:
		userID := strings.TrimSpace(input["user_id"])
		password := input["password"]
		for _, cred := range e.nav.Credentials {
			if strings.EqualFold(cred.UserID, userID) && cred.Password == password {
				return ""
			}
		}
		return "User ID or password is not correct"
	case ValidationLoanExists:
		loan := strings.TrimSpace(input["loan_number"])
		if e.store != nil && e.store.HasLoan(loan) {
			return ""
		}
		return fmt.Sprintf("Loan %s not found", loan)
	}
	return ""
}
