package scanner

import (
	"bufio"
	"os"
	"regexp"
)

// Item is one function, method, class, or type found in a file.
type Item struct {
	Name      string `json:"name"`
	Kind      string `json:"type"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// ExtractStructure returns the function/class/type outline of a file.
// Go files get a real syntax tree; everything else is pattern matched
// line by line, so end lines are approximate there.
func ExtractStructure(path string) []Item {
	switch DetectLanguage(path) {
	case "go":
		if items, err := extractGoStructure(path); err == nil {
			return items
		}
		return extractByPatterns(path, genericPatterns)
	case "python":
		return extractByPatterns(path, pythonPatterns)
	case "javascript", "typescript":
		return extractByPatterns(path, jsTSPatterns)
	case "java", "kotlin", "csharp", "scala":
		return extractByPatterns(path, javaLikePatterns)
	case "rust":
		return extractByPatterns(path, rustPatterns)
	case "ruby":
		return extractByPatterns(path, rubyPatterns)
	default:
		return extractByPatterns(path, genericPatterns)
	}
}

type pattern struct {
	re      *regexp.Regexp
	kind    string
	exclude map[string]bool
}

var controlWords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"catch": true, "return": true, "new": true,
}

var (
	pythonPatterns = []pattern{
		{re: regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)`), kind: "function"},
		{re: regexp.MustCompile(`^\s*class\s+(\w+)`), kind: "class"},
	}

	jsTSPatterns = []pattern{
		{re: regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)`), kind: "function"},
		{re: regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:\(|[a-zA-Z])`), kind: "function"},
		{re: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?class\s+(\w+)`), kind: "class"},
		{re: regexp.MustCompile(`^\s+(?:async\s+)?(\w+)\s*\(`), kind: "method", exclude: controlWords},
	}

	javaLikePatterns = []pattern{
		{re: regexp.MustCompile(`^\s*(?:public|private|protected|internal|abstract|final|open|data|sealed)?\s*(?:static\s+)?(?:class|interface|enum|object|record)\s+(\w+)`), kind: "class"},
		{re: regexp.MustCompile(`^\s+(?:public|private|protected|internal|override|abstract|final|open|static|suspend|fun)?\s*(?:static\s+)?(?:\w+(?:<[^>]+>)?\s+)?(\w+)\s*\(`), kind: "method", exclude: controlWords},
	}

	rustPatterns = []pattern{
		{re: regexp.MustCompile(`^\s*(?:pub\s+)?(?:async\s+)?fn\s+(\w+)`), kind: "function"},
		{re: regexp.MustCompile(`^\s*(?:pub\s+)?(?:struct|enum|trait|impl)\s+(\w+)`), kind: "type"},
	}

	rubyPatterns = []pattern{
		{re: regexp.MustCompile(`^\s*(?:class|module)\s+(\w+)`), kind: "class"},
		{re: regexp.MustCompile(`^\s*def\s+(\w+[?!]?)`), kind: "method"},
	}

	genericPatterns = []pattern{
		{re: regexp.MustCompile(`^\s*(?:def|func|function|fn|sub|proc)\s+(\w+)`), kind: "function"},
		{re: regexp.MustCompile(`^\s*(?:class|struct|enum|type|interface|trait|module)\s+(\w+)`), kind: "type"},
	}
)

func extractByPatterns(path string, patterns []pattern) []Item {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var items []Item
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if p.exclude != nil && p.exclude[m[1]] {
				continue
			}
			items = append(items, Item{Name: m[1], Kind: p.kind, StartLine: lineNo, EndLine: lineNo})
			break
		}
	}
	return items
}
