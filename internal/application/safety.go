package application

import (
	"net/url"
	"regexp"
	"strings"
)

// crisisKeywords are matched as case-insensitive substrings. The list is
// deliberately broad: a false positive only routes a mention to a human.
var crisisKeywords = []string{
	// Ukrainian
	"суїцид",
	"самогубств",
	"не хочу жити",
	"не бачу сенсу",
	"хочу померти",
	"різати себе",
	"самоповреждени",
	"антидепресант",
	"депресія",
	"не можу більше",
	// English
	"suicide",
	"suicidal",
	"kill myself",
	"end it all",
	"self-harm",
	"self harm",
	"depression",
	"can't go on",
	"can’t go on",
	"want to die",
}

var crisisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)панічн.*атак`),
	regexp.MustCompile(`(?i)panic\s+attack`),
}

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)follow.{0,5}follow`),
	regexp.MustCompile(`(?i)check.{0,5}(my|bio)`),
	regexp.MustCompile(`(?i)\bDM.{0,5}(me|for)`),
	regexp.MustCompile(`(?i)crypto|bitcoin|казино|casino`),
}

// linkPattern captures the host of every http(s) link in a text.
var linkPattern = regexp.MustCompile(`(?i)https?://[^\s/?#]+`)

// platformDomains are the hosts links may point to without being spam.
var platformDomains = []string{"threads.net", "threads.com", "instagram.com"}

// ClassifyCrisis reports whether text contains self-harm, suicidal ideation
// or depression language in Ukrainian or English.
func ClassifyCrisis(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range crisisKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, re := range crisisPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ClassifySpam reports whether text looks promotional or off-topic:
// follow-for-follow, "DM me", crypto and gambling terms, or links to hosts
// outside the platform's own domains.
func ClassifySpam(text string) bool {
	for _, re := range spamPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	for _, link := range linkPattern.FindAllString(text, -1) {
		if !isPlatformLink(link) {
			return true
		}
	}
	return false
}

func isPlatformLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range platformDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
