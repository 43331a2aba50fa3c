package jsonx

import "regexp"

var structuralSignal = regexp.MustCompile(`[{}\[\]]|"[^"]*"\s*:`)

// nonJSONShapes are openers that never start a JSON document.
var nonJSONShapes = []*regexp.Regexp{
	regexp.MustCompile(`^\p{Han}`),
	regexp.MustCompile(`^正在`),
	regexp.MustCompile(`(?i)^python\s*\n`),
	regexp.MustCompile(`(?i)^(note|warning|error):`),
	regexp.MustCompile(`(?i)^(here is|here's|sure[,!. ]|certainly|i am |i'm |i will |let me |based on |according to )`),
	regexp.MustCompile(`^\*\*.*\*\*$`),
	regexp.MustCompile(`^#+\s`),
	regexp.MustCompile(`^\s*[A-Za-z\p{Han}]+[：:]\s*`),
	regexp.MustCompile(`^\s*def\s+\w+\s*\(`),
	regexp.MustCompile(`^\s*import\s+\w+`),
	regexp.MustCompile(`^\s*class\s+\w+`),
	regexp.MustCompile(`^\s*function\s+\w+\s*\(`),
	regexp.MustCompile(`^\s*func\s+\w+\s*\(`),
	regexp.MustCompile(`^\s*package\s+\w+`),
	regexp.MustCompile(`^\s*(const|let|var)\s+\w+\s*=`),
}

// LikelyNonJSON reports whether text is obviously prose or code rather than
// JSON. Text with any brace, bracket or quoted key is never rejected here.
func LikelyNonJSON(text string) bool {
	if text == "" {
		return true
	}
	if structuralSignal.MatchString(text) {
		return false
	}
	for _, re := range nonJSONShapes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
