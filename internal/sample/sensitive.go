package sample

import "strings"

// sensitiveKeywordGroups is the configurable set of keyword groups matched
// case-insensitively against column names. Per DESIGN.md's Open Question
// decision, this is the single representation used throughout — plain
// lowercase keyword lists matched with strings.Contains after case
// folding, not a regex-extracted/regex-compiled dual form.
var sensitiveKeywordGroups = map[string][]string{
	"password": {"password", "passwd", "pwd"},
	"email":    {"email", "e_mail"},
	"ssn":      {"ssn", "social_security"},
	"token":    {"token", "access_token", "refresh_token"},
	"api_key":  {"api_key", "apikey", "secret_key"},
	"pii":      {"first_name", "last_name", "full_name", "date_of_birth", "dob", "address", "phone", "credit_card", "card_number"},
}

// SensitiveColumnWarning names a column name and the keyword group it
// matched.
type SensitiveColumnWarning struct {
	Column string
	Group  string
}

// DetectSensitiveColumns runs before sampling, over column names alone.
// It is advisory only: matching columns generate one warning each;
// sampling proceeds unchanged and no data is redacted at this layer.
func DetectSensitiveColumns(columnNames []string) []SensitiveColumnWarning {
	var warnings []SensitiveColumnWarning
	for _, name := range columnNames {
		lower := strings.ToLower(name)
		group, ok := matchGroup(lower)
		if ok {
			warnings = append(warnings, SensitiveColumnWarning{Column: name, Group: group})
		}
	}
	return warnings
}

func matchGroup(lowerName string) (string, bool) {
	for group, keywords := range sensitiveKeywordGroups {
		for _, kw := range keywords {
			if strings.Contains(lowerName, kw) {
				return group, true
			}
		}
	}
	return "", false
}
