// Package logmask redacts transaction identifiers, account numbers, amounts
// and timestamps before log records reach a sink.
package logmask

import (
	"regexp"
	"strings"
)

// Placeholder replaces every redacted value.
const Placeholder = "?"

var sensitivePattern = regexp.MustCompile(
	`(?i)((?:transaction_?id|account|in_?debt|have|amount|debit|credit|\btime\b)"?\s*[:=]\s*)("[^"]*"|[^,\s\]}]+(?: \d[^,\s\]}]*)*)`,
)

// sensitiveKeys are normalised (lower case, no separators) attribute keys whose values are always masked.
var sensitiveKeys = []string{
	"transactionid",
	"account",
	"sourceaccount",
	"destaccount",
	"indebt",
	"have",
	"amount",
	"debit",
	"credit",
	"time",
}

// Mask replaces the value following each sensitive key and separator with
// Placeholder. Space separated groups that start with a digit belong to the value.
func Mask(input string) string {
	if input == "" {
		return input
	}
	return sensitivePattern.ReplaceAllString(input, "${1}"+Placeholder)
}

// IsSensitiveKey reports whether an attribute key names sensitive data.
func IsSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.NewReplacer("_", "", "-", "", ".", "").Replace(key))
	for _, k := range sensitiveKeys {
		if normalized == k {
			return true
		}
		if k != "time" && k != "have" && strings.HasSuffix(normalized, k) {
			return true
		}
	}
	return false
}

// Path redacts URL path segments that carry digits, such as transaction or user ids.
func Path(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		if strings.ContainsAny(seg, "0123456789") {
			segments[i] = Placeholder
		}
	}
	return strings.Join(segments, "/")
}
