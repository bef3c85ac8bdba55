package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Certificate numbers follow the wire-level contract PREFIX-YYYY-NNNNN with a
// zero-padded five digit sequence scoped per record type and calendar year.

// FormatCertificateNumber renders a certificate number for the given scope.
func FormatCertificateNumber(t RecordType, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%05d", t.Prefix(), year, seq)
}

// ParseCertificateSequence extracts the trailing five digit sequence from an
// existing certificate number. It returns an error for corrupt values so the
// caller can raise a data-integrity warning instead of silently miscounting.
func ParseCertificateSequence(no string) (int, error) {
	idx := strings.LastIndex(no, "-")
	if idx < 0 || idx+1 >= len(no) {
		return 0, fmt.Errorf("malformed certificate number %q", no)
	}
	tail := no[idx+1:]
	if len(tail) != 5 {
		return 0, fmt.Errorf("certificate number %q: sequence must be five digits", no)
	}
	seq, err := strconv.Atoi(tail)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("certificate number %q: unparseable sequence", no)
	}
	return seq, nil
}
