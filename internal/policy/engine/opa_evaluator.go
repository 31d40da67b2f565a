package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"
)

const loginQuery = "data.biopay.login"

// DefaultLoginPolicy allows a login only for a registered user whose mobile number passed
// OTP verification and who confirmed the fingerprint prompt.
const DefaultLoginPolicy = `package biopay.login

default allow := false

allow if {
	count(deny) == 0
}

deny contains "user is not registered" if {
	not input.user.registered
}

deny contains "mobile number is not verified" if {
	not input.otp.verified
}

deny contains "fingerprint was not confirmed" if {
	not input.fingerprint.confirmed
}
`

// OPAEvaluator evaluates the login policy with an in-process OPA Rego engine.
// The query is compiled once; evaluation is safe for concurrent use.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (package biopay.login, rules allow and deny).
// An empty policy uses DefaultLoginPolicy.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultLoginPolicy
	}
	q, err := rego.New(
		rego.Query(loginQuery),
		rego.Module("login.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile login policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// HealthCheck evaluates the policy against an empty attempt, which must be denied.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	d, err := e.EvaluateLogin(ctx, LoginInput{})
	if err != nil {
		return err
	}
	if d.Allow {
		return errors.New("login policy allows an unverified attempt")
	}
	return nil
}

// EvaluateLogin evaluates the policy for in. Evaluation errors deny the login.
func (e *OPAEvaluator) EvaluateLogin(ctx context.Context, in LoginInput) (Decision, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		return Decision{}, fmt.Errorf("eval login policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, errors.New("login policy returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("login policy result has type %T", rs[0].Expressions[0].Value)
	}
	var d Decision
	d.Allow, _ = doc["allow"].(bool)
	if deny, ok := doc["deny"].([]interface{}); ok {
		for _, r := range deny {
			if s, ok := r.(string); ok {
				d.Reasons = append(d.Reasons, s)
			}
		}
		sort.Strings(d.Reasons)
	}
	if d.Allow {
		d.Reasons = nil
	}
	return d, nil
}

func buildInput(in LoginInput) map[string]interface{} {
	return map[string]interface{}{
		"user": map[string]interface{}{
			"registered": in.Registered,
			"user_type":  in.UserType,
		},
		"otp": map[string]interface{}{
			"verified": in.OTPVerified,
		},
		"fingerprint": map[string]interface{}{
			"confirmed": in.FingerprintConfirmed,
		},
	}
}
