package parser

import "regexp"

// Reasoning blocks some models emit ahead of their answer.
var pollutionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<think>.*?</think>`),
	regexp.MustCompile(`(?is)<thinking>.*?</thinking>`),
	regexp.MustCompile(`(?is)<reflection>.*?</reflection>`),
	regexp.MustCompile(`(?is)<内部思考>.*?</内部思考>`),
}

// Clean strips reasoning blocks from text. Patterns are applied until
// nothing changes, so Clean(Clean(x)) == Clean(x) for every x.
func Clean(text string) string {
	for {
		cleaned := text
		for _, re := range pollutionPatterns {
			cleaned = re.ReplaceAllLiteralString(cleaned, "")
		}
		if cleaned == text {
			return cleaned
		}
		text = cleaned
	}
}
