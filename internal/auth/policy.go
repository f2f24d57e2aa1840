package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves the required role for the request. Only mutating
// endpoints carry a role requirement; reads and the realtime stream are open.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
		return "", false
	}

	switch {
	case path == "/api/v1/stations/assign":
		return RoleCollector, true
	case path == "/api/v1/stations/release":
		return RoleOperator, true
	case path == "/api/v1/stations":
		return RoleOperator, true
	case strings.HasPrefix(path, "/api/v1/stations/") && method == http.MethodDelete:
		return RoleAdmin, true
	case strings.HasPrefix(path, "/api/v1/stations/"):
		return RoleOperator, true
	case path == "/api/v1/regions" || strings.HasPrefix(path, "/api/v1/regions/"):
		return RoleOperator, true
	case strings.HasPrefix(path, "/api/v1/sensors/"):
		return RoleCollector, true
	}

	if strings.HasPrefix(path, "/api/") {
		return RoleOperator, true
	}
	return "", false
}
