package matcher

import (
	"fmt"
	"strings"

	"billing-match-service/internal/models"
)

// ScopeFilter restricts match candidates to the organizations a caller is
// authorized to see. The zero value denies everything; use UnrestrictedScope
// for privileged callers or ScopeOf for a finite organization set.
type ScopeFilter struct {
	unrestricted bool
	orgs         map[string]struct{}
}

// UnrestrictedScope returns the sentinel scope that passes every shipment.
func UnrestrictedScope() ScopeFilter {
	return ScopeFilter{unrestricted: true}
}

// ScopeOf returns a scope limited to the given organization keys.
func ScopeOf(orgKeys ...string) ScopeFilter {
	orgs := make(map[string]struct{}, len(orgKeys))
	for _, key := range orgKeys {
		key = strings.TrimSpace(key)
		if key != "" {
			orgs[key] = struct{}{}
		}
	}
	return ScopeFilter{orgs: orgs}
}

// Allows reports whether a shipment owned by orgKey is visible in this scope.
func (sf ScopeFilter) Allows(orgKey string) bool {
	if sf.unrestricted {
		return true
	}
	_, ok := sf.orgs[orgKey]
	return ok
}

// IsUnrestricted reports whether the scope passes every organization.
func (sf ScopeFilter) IsUnrestricted() bool {
	return sf.unrestricted
}

// String returns a short description of the scope for logging.
func (sf ScopeFilter) String() string {
	if sf.unrestricted {
		return "ScopeFilter{unrestricted}"
	}
	return fmt.Sprintf("ScopeFilter{orgs: %d}", len(sf.orgs))
}

// CarrierFilter is an optional secondary constraint requiring a
// case-insensitive substring match between the requested carrier name and
// the shipment's carrier-name field.
type CarrierFilter struct {
	Name string
}

// Matches reports whether the shipment carrier name satisfies the filter.
// A nil filter or an empty name passes everything.
func (cf *CarrierFilter) Matches(carrierName string) bool {
	if cf == nil {
		return true
	}

	want := strings.TrimSpace(strings.ToLower(cf.Name))
	if want == "" {
		return true
	}

	return strings.Contains(strings.ToLower(carrierName), want)
}

// admit applies the access scope and the optional carrier filter to a
// shipment. Applied eagerly inside each strategy so rejected shipments never
// reach the merge step.
func admit(sr *models.ShipmentRecord, scope ScopeFilter, carrier *CarrierFilter) bool {
	if !scope.Allows(sr.OrgKey) {
		return false
	}
	return carrier.Matches(sr.CarrierName)
}
