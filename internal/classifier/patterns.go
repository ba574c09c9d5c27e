package classifier

import "regexp"

// Keyword tiers. Order matters: matches are reported in list order.
var (
	strongKeywords = []string{"invoice", "bill", "payment due", "amount due"}
	weakKeywords   = []string{"payment", "balance", "statement", "receipt", "charge", "total"}
)

// amountPatterns are tried in order; the first pattern with any match wins.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$[\d,]+\.?\d*`),
	regexp.MustCompile(`(?i)[\d,]+\.?\d*\s*dollars?`),
	regexp.MustCompile(`(?i)[\d,]+\.?\d*\s*usd`),
	regexp.MustCompile(`(?i)amount[:\s]*\$?[\d,]+\.?\d*`),
}

// invoiceIDPattern is the INV-YYYY-NNN form and beats every looser pattern.
var invoiceIDPattern = regexp.MustCompile(`(?i)inv-[\d-]+`)

// looseInvoiceNumberPatterns capture the number in group 1. A capture must be
// longer than minInvoiceNumberLen to count.
var looseInvoiceNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)invoice\s*#?\s*([a-z0-9-]+)`),
	regexp.MustCompile(`(?i)(?:invoice|inv)[\s#-]*([a-z0-9-]+)`),
	regexp.MustCompile(`(?i)#([a-z0-9-]+)`),
	regexp.MustCompile(`(?i)invoice\s*number[:\s]*([a-z0-9-]+)`),
}

const minInvoiceNumberLen = 2

var dueDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)due\s*date[:\s]*([a-z0-9\s,]+)`),
	regexp.MustCompile(`(?i)payment\s*due[:\s]*([a-z0-9\s,]+)`),
	regexp.MustCompile(`(?i)due\s*by[:\s]*([a-z0-9\s,]+)`),
}

// Score contributions per signal.
const (
	strongKeywordScore = 40
	weakKeywordScore   = 20
	amountScore        = 30
	invoiceNumberScore = 20
	vendorScore        = 10
	dueDateScore       = 15

	confidenceFloor = 30
	confidenceCap   = 100
)

type topicRule struct {
	name     string
	keywords []string
}

// topicTable is evaluated in declaration order.
var topicTable = []topicRule{
	{name: "invoice", keywords: []string{"invoice", "bill", "payment"}},
	{name: "meeting", keywords: []string{"meeting", "call", "appointment"}},
	{name: "project", keywords: []string{"project", "task", "deadline"}},
	{name: "support", keywords: []string{"help", "support", "issue", "problem"}},
	{name: "update", keywords: []string{"update", "status", "progress"}},
}

const defaultTopic = "general"

var (
	highUrgencyKeywords   = []string{"urgent", "asap", "immediate", "critical", "emergency"}
	mediumUrgencyKeywords = []string{"soon", "quickly", "prompt"}
)

var actionKeywords = []string{
	"please", "need", "required", "must", "should", "action",
	"respond", "reply", "confirm", "approve", "review",
}

var sentenceSplitter = regexp.MustCompile(`[.!?]+`)

const (
	maxActionItems     = 3
	summaryPreviewLen  = 100
	summaryNoSubject   = "No subject"
	summaryNoSender    = "Unknown sender"
	analysisDateLayout = "2006-01-02"
)
