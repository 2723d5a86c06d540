package template

import (
	"fmt"
	"regexp"
	"unicode"
)

// Policy lint patterns. Matches are warnings, not failures: environments may
// legitimately pin such values, but they usually belong in parameter files.
var (
	accountIDPattern = regexp.MustCompile(`\b\d{12}\b`)
	regionPattern    = regexp.MustCompile(`\b(?:us|eu|ap|sa|ca|me|af|il)-[a-z]+-\d\b`)
	ipPattern        = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?:/\d{1,2})?\b`)
)

// lintBody scans raw template text for disallowed hardcoded values and
// returns one warning diagnostic per finding category.
func lintBody(raw []byte) []Diagnostic {
	var out []Diagnostic
	if m := accountIDPattern.Find(raw); m != nil {
		out = append(out, warningf("hardcoded account identifier %q; move it to the parameter file", m))
	}
	if m := regionPattern.Find(raw); m != nil {
		out = append(out, warningf("hardcoded region %q; regions come from the invocation", m))
	}
	if m := ipPattern.Find(raw); m != nil {
		out = append(out, warningf("hardcoded IP address %q; move it to the parameter file", m))
	}
	return out
}

// lintLogicalID checks resource naming conventions. CloudFormation requires
// alphanumeric logical IDs; the leading-uppercase convention is advisory.
func lintLogicalID(id string) []Diagnostic {
	var out []Diagnostic
	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			out = append(out, errorf("resource %q: logical ID must be alphanumeric", id))
			return out
		}
	}
	if id != "" && !unicode.IsUpper(rune(id[0])) {
		out = append(out, warningf("resource %q: logical IDs conventionally start with an uppercase letter", id))
	}
	return out
}

func errorf(format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

func warningf(format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}
