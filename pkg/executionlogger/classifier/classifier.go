// Package classifier implements the error taxonomy: a pure mapping from
// a raw error to a Categorized verdict that the pipeline uses to decide
// retry vs fallback vs drop.
package classifier

import "strings"

// Category names one of the nine error buckets the pipeline routes
// failures into.
type Category string

const (
	CategoryConfiguration  Category = "configuration"
	CategoryAuthentication Category = "authentication"
	CategoryConnection     Category = "connection"
	CategoryTimeout        Category = "timeout"
	CategorySerialization  Category = "serialization"
	CategoryCircuitBreaker Category = "circuitBreaker"
	CategoryQueueOverflow  Category = "queueOverflow"
	CategoryMessageSending Category = "messageSending"
	CategoryUnknown        Category = "unknown"
)

// Severity orders how loudly a category should be logged.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Categorized is the verdict returned for a raw error.
type Categorized struct {
	Category      Category
	Severity      Severity
	ShouldRetry   bool
	ShouldFallback bool
}

type rule struct {
	category    Category
	severity    Severity
	shouldRetry bool
	fallback    bool
	substrings  []string
}

// rules is evaluated top to bottom; first match wins.
var rules = []rule{
	{
		category: CategoryConfiguration, severity: SeverityCritical, shouldRetry: false, fallback: true,
		substrings: []string{"configuration", "invalid", "missing", "broker-format", "topic-empty", "clientid-empty"},
	},
	{
		category: CategoryAuthentication, severity: SeverityHigh, shouldRetry: false, fallback: true,
		substrings: []string{"authentication", "unauthorized", "sasl", "credentials", "auth"},
	},
	{
		category: CategoryConnection, severity: SeverityHigh, shouldRetry: true, fallback: true,
		substrings: []string{"connection", "network", "econnrefused", "enotfound", "ehostunreach", "broker-unavailable"},
	},
	{
		category: CategoryTimeout, severity: SeverityMedium, shouldRetry: true, fallback: true,
		substrings: []string{"timeout", "timed out", "etimedout"},
	},
	{
		category: CategorySerialization, severity: SeverityMedium, shouldRetry: false, fallback: false,
		substrings: []string{"serialization", "json", "parse", "stringify", "invalid-message"},
	},
	{
		category: CategoryCircuitBreaker, severity: SeverityMedium, shouldRetry: false, fallback: true,
		substrings: []string{"circuit breaker"},
	},
	{
		category: CategoryQueueOverflow, severity: SeverityMedium, shouldRetry: false, fallback: true,
		substrings: []string{"queue-full", "queue-overflow", "message-dropped", "queue full", "queue overflow"},
	},
	{
		category: CategoryMessageSending, severity: SeverityMedium, shouldRetry: true, fallback: true,
		substrings: []string{"send", "publish", "produce", "kafka-failed"},
	},
}

// Classify maps err to a Categorized verdict. A nil error classifies as
// unknown/retry/fallback, the same as any error matching none of the
// rules below.
func Classify(err error) Categorized {
	if err == nil {
		return Categorized{Category: CategoryUnknown, Severity: SeverityMedium, ShouldRetry: true, ShouldFallback: true}
	}

	msg := strings.ToLower(err.Error())

	for _, r := range rules {
		if r.category == CategoryCircuitBreaker {
			// Besides "circuit breaker", the compound "circuit … open"
			// matches here, in table order; both tokens must appear so an
			// unrelated "open" error (e.g. "file open failed") does not.
			if strings.Contains(msg, "circuit breaker") || (strings.Contains(msg, "circuit") && strings.Contains(msg, "open")) {
				return Categorized{Category: r.category, Severity: r.severity, ShouldRetry: r.shouldRetry, ShouldFallback: r.fallback}
			}
			continue
		}
		for _, substr := range r.substrings {
			if strings.Contains(msg, substr) {
				return Categorized{
					Category:       r.category,
					Severity:       r.severity,
					ShouldRetry:    r.shouldRetry,
					ShouldFallback: r.fallback,
				}
			}
		}
	}

	return Categorized{Category: CategoryUnknown, Severity: SeverityMedium, ShouldRetry: true, ShouldFallback: true}
}
