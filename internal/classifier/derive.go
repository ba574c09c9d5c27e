package classifier

import (
	"fmt"

	"github.com/mikey/invoice-analyzer/internal/core"
)

func extractTopics(content string) []string {
	topics := []string{}
	for _, rule := range topicTable {
		if containsAny(content, rule.keywords) {
			topics = append(topics, rule.name)
		}
	}
	if len(topics) == 0 {
		return []string{defaultTopic}
	}
	return topics
}

func determineUrgency(content string) core.Urgency {
	switch {
	case containsAny(content, highUrgencyKeywords):
		return core.UrgencyHigh
	case containsAny(content, mediumUrgencyKeywords):
		return core.UrgencyMedium
	default:
		return core.UrgencyLow
	}
}

// extractActionItems keeps the first clauses holding an action cue. Clauses
// are returned as split, surrounding whitespace included.
func extractActionItems(content string) []string {
	items := []string{}
	for _, sentence := range sentenceSplitter.Split(content, -1) {
		if len(items) == maxActionItems {
			break
		}
		if containsAny(sentence, actionKeywords) {
			items = append(items, sentence)
		}
	}
	return items
}

func generateSummary(email core.Email) string {
	subject := email.Subject
	if subject == "" {
		subject = summaryNoSubject
	}
	from := email.From
	if from == "" {
		from = summaryNoSender
	}

	preview := []rune(email.Body)
	if len(preview) > summaryPreviewLen {
		preview = preview[:summaryPreviewLen]
	}

	return fmt.Sprintf("Email from %s regarding \"%s\". %s...", from, subject, string(preview))
}
