package stripe

import "strings"

// DefaultPlaceholderAccount is the sentinel the storefront uses before the
// artist has finished connecting a real account.
const DefaultPlaceholderAccount = "acct_placeholder"

// IsRealAccount reports whether id is a usable connected account id.
func IsRealAccount(id, placeholder string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	if placeholder == "" {
		placeholder = DefaultPlaceholderAccount
	}
	if strings.EqualFold(id, placeholder) {
		return false
	}
	return strings.HasPrefix(id, "acct_")
}
