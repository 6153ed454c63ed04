package tagger

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	headerRe   = regexp.MustCompile(`^\[[\d:]+\]\s+(User|Assistant):`)
	decisionRe = regexp.MustCompile(`(?i)(decided|let's go with|the approach is|we'll use|going with|` +
		`chose|choosing|settled on|the plan is|agreed to|` +
		`the solution|implemented|the fix is|resolved by)`)
	commitRe    = regexp.MustCompile(`\[Tool: Bash\] .*?git commit -m ["']?(.*?)(?:["']|$)`)
	heredocRe   = regexp.MustCompile(`git commit.*?<<.*?EOF\n(.*?)(?:\n|$)`)
	fileWriteRe = regexp.MustCompile(`\[Tool: (?:Write|Edit)\]\s+(.+)`)
	sentenceRe  = regexp.MustCompile(`[.!]\s+`)
)

type transcriptMessage struct {
	role string
	text string
}

// summaryFallback builds a structured highlights document from a
// compact transcript without LLM assistance: questions asked,
// decision language, commit messages, and files touched.
func summaryFallback(transcript string) string {
	messages := parseTranscript(transcript)

	var questions, decisions, commits []string
	files := map[string]bool{}

	for _, m := range messages {
		if m.role == "User" {
			for _, sent := range sentenceRe.Split(m.text, -1) {
				sent = strings.TrimSpace(sent)
				if strings.HasSuffix(sent, "?") && len(sent) > 20 {
					questions = append(questions, sent)
				}
			}
		}
		if m.role == "Assistant" {
			for _, line := range strings.Split(m.text, "\n") {
				if decisionRe.MatchString(line) && len(line) > 30 {
					decisions = append(decisions, shorten(strings.TrimSpace(line), 200))
				}
			}
		}
		for _, match := range commitRe.FindAllStringSubmatch(m.text, -1) {
			if msg := shorten(match[1], 150); msg != "" {
				commits = append(commits, msg)
			}
		}
		for _, match := range heredocRe.FindAllStringSubmatch(m.text, -1) {
			if msg := shorten(match[1], 150); msg != "" {
				commits = append(commits, msg)
			}
		}
		for _, match := range fileWriteRe.FindAllStringSubmatch(m.text, -1) {
			files[strings.TrimSpace(match[1])] = true
		}
	}

	var b strings.Builder
	b.WriteString("## Session Summary\n")

	var substantive []transcriptMessage
	for _, m := range messages {
		if len(m.text) > 50 {
			substantive = append(substantive, m)
		}
	}
	if len(substantive) > 0 {
		for _, m := range substantive {
			if m.role == "User" {
				fmt.Fprintf(&b, "Session started with: %s\n", shorten(m.text, 200))
				break
			}
		}
		fmt.Fprintf(&b, "Total messages: %d\n", len(messages))
	}
	b.WriteString("\n")

	writeSection(&b, "## Key Questions", questions, 8, 200)
	writeSection(&b, "## Key Decisions", decisions, 8, 0)
	writeSection(&b, "## Commits", commits, 6, 0)

	if len(files) > 0 {
		var sorted []string
		for f := range files {
			sorted = append(sorted, f)
		}
		sort.Strings(sorted)
		if len(sorted) > 15 {
			sorted = sorted[:15]
		}
		writeSection(&b, "## Files Modified", sorted, 15, 0)
	}

	// Thin sessions get opening and closing exchanges instead.
	if len(decisions) == 0 && len(commits) == 0 {
		b.WriteString("## Notable Exchanges\n")
		head := substantive
		if len(head) > 3 {
			head = head[:3]
		}
		for _, m := range head {
			fmt.Fprintf(&b, "**%s:** %s\n\n", m.role, shorten(m.text, 300))
		}
		if len(substantive) > 6 {
			b.WriteString("...\n")
			for _, m := range substantive[len(substantive)-2:] {
				fmt.Fprintf(&b, "**%s:** %s\n\n", m.role, shorten(m.text, 300))
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// parseTranscript splits the "[HH:MM] Role:" transcript format back
// into role-tagged messages.
func parseTranscript(transcript string) []transcriptMessage {
	var messages []transcriptMessage
	var role string
	var current []string

	flush := func() {
		if role != "" && len(current) > 0 {
			messages = append(messages, transcriptMessage{
				role: role,
				text: strings.TrimSpace(strings.Join(current, "\n")),
			})
		}
	}
	for _, line := range strings.Split(transcript, "\n") {
		if m := headerRe.FindStringSubmatch(line); m != nil {
			flush()
			role = m[1]
			current = nil
			continue
		}
		if role != "" {
			current = append(current, line)
		}
	}
	flush()
	return messages
}

func writeSection(b *strings.Builder, title string, items []string, max, itemCap int) {
	if len(items) == 0 {
		return
	}
	if len(items) > max {
		items = items[:max]
	}
	b.WriteString(title + "\n")
	for _, item := range items {
		if itemCap > 0 {
			item = shorten(item, itemCap)
		}
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func shorten(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
