package audit

import "strings"

// ActionResource holds action and resource derived from an auth API route.
type ActionResource struct {
	Action   string
	Resource string
}

// routeOverrides maps auth endpoints whose audit name differs from the path segment.
var routeOverrides = map[string]ActionResource{
	"resend-otp": {Action: ActionOTPSent, Resource: ResourceOTP},
	"verify-otp": {Action: "verify_otp", Resource: ResourceOTP},
	"login":      {Action: "login", Resource: ResourceSession},
	"register":   {Action: ActionRegister, Resource: ResourceUser},
}

// ParseRoute returns action and resource for an HTTP request path (e.g. /api/auth/verify-otp).
// Known auth endpoints use routeOverrides; other paths use the last segment as the action
// (dashes become underscores) and the segment before it as the resource.
func ParseRoute(path string) ActionResource {
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	last := strings.ToLower(segments[len(segments)-1])
	if ar, ok := routeOverrides[last]; ok {
		return ar
	}
	resource := "unknown"
	if len(segments) > 1 {
		resource = strings.ToLower(segments[len(segments)-2])
	}
	return ActionResource{Action: strings.ReplaceAll(last, "-", "_"), Resource: resource}
}
