package workflow

import "strings"

// linkKeywords are the closing keywords GitHub recognizes in pull request
// descriptions, matched as bare substrings.
var linkKeywords = []string{
	"fix", "fixes", "fixed",
	"close", "closes", "closed",
	"resolve", "resolves",
}

// LinksToIssue reports whether a pull request body references an issue.
//
// "resolved" is special-cased to also require a "#" in the body, while every
// other keyword matches as a bare substring. The asymmetry is longstanding
// behavior and kept as is; it looks unintentional, since "resolve" already
// matches inside "resolved".
func LinksToIssue(body string) bool {
	for _, keyword := range linkKeywords {
		if strings.Contains(body, keyword) {
			return true
		}
	}
	return strings.Contains(body, "resolved") && strings.Contains(body, "#")
}

// IssueNumberFromBody extracts the issue number following the first "#" in
// a pull request body. Digits are read until the first non-digit character.
func IssueNumberFromBody(body string) (int, bool) {
	idx := strings.Index(body, "#")
	if idx < 0 || idx+1 >= len(body) {
		return 0, false
	}

	number := 0
	found := false
	for _, r := range body[idx+1:] {
		if r < '0' || r > '9' {
			break
		}
		number = number*10 + int(r-'0')
		found = true
	}
	return number, found
}
