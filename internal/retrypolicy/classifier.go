package retrypolicy

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies a conversion failure for retry eligibility.
type Kind int

const (
	// KindPermanent failures require manual intervention; they are never
	// retried automatically. Unrecognized errors classify as permanent so
	// an unknown failure can never retry forever.
	KindPermanent Kind = iota
	// KindTransient failures may succeed on a later attempt and are
	// retried with exponential backoff.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// Error message patterns that indicate a retry may succeed: network and
// connection failures, temporary resource exhaustion, transient I/O, and
// known flaky behavior of the merge tool.
var defaultTransientPatterns = []string{
	`connection\s+(timed?\s*out|reset|refused|aborted)`,
	`network\s+is\s+unreachable`,
	`temporary\s+failure`,
	`no\s+route\s+to\s+host`,
	`name\s+or\s+service\s+not\s+known`,

	`out\s+of\s+memory`,
	`cannot\s+allocate\s+memory`,
	`too\s+many\s+open\s+files`,

	`i/o\s+error`,
	`input/output\s+error`,
	`read\s+error`,
	`write\s+error`,

	`resource\s+temporarily\s+unavailable`,
	`broken\s+pipe`,
	`device\s+or\s+resource\s+busy`,

	`could\s+not\s+create\s+temp`,
	`ffmpeg.*hung`,
	`conversion\s+timeout`,
}

// Error message patterns that indicate the input itself is unprocessable.
// Checked before the transient table because they are more specific.
var defaultPermanentPatterns = []string{
	`invalid\s+(format|file|data|header)`,
	`corrupt(ed)?\s+(file|data|stream)`,
	`unsupported\s+(format|codec|file)`,
	`not\s+a\s+valid\s+audio\s+file`,
	`no\s+audio\s+streams?\s+found`,
	`could\s+not\s+find\s+codec`,

	`permission\s+denied`,
	`access\s+denied`,
	`operation\s+not\s+permitted`,

	`no\s+such\s+file\s+or\s+directory`,
	`file\s+not\s+found`,

	`invalid\s+configuration`,
	`missing\s+required\s+(parameter|option|argument)`,

	`multi.*nested.*folders?`,
	`multiple\s+books\s+found`,
	`could\s+not\s+determine\s+structure`,
}

// Classifier maps failure messages to a Kind using ordered pattern tables.
type Classifier struct {
	permanent []*regexp.Regexp
	transient []*regexp.Regexp
}

// NewClassifier returns a classifier loaded with the default pattern tables.
func NewClassifier() *Classifier {
	c, err := NewClassifierWithPatterns(defaultTransientPatterns, defaultPermanentPatterns)
	if err != nil {
		// Defaults are compile-time constants; a failure here is a bug.
		panic(fmt.Sprintf("retrypolicy: default patterns: %v", err))
	}
	return c
}

// NewClassifierWithPatterns builds a classifier from custom pattern tables.
// Patterns are matched case-insensitively against the whole message.
func NewClassifierWithPatterns(transient, permanent []string) (*Classifier, error) {
	compile := func(patterns []string) ([]*regexp.Regexp, error) {
		compiled := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q: %w", p, err)
			}
			compiled = append(compiled, re)
		}
		return compiled, nil
	}

	transientRes, err := compile(transient)
	if err != nil {
		return nil, err
	}
	permanentRes, err := compile(permanent)
	if err != nil {
		return nil, err
	}
	return &Classifier{permanent: permanentRes, transient: transientRes}, nil
}

// Classify categorizes an error message. Permanent patterns win over
// transient ones, and anything unmatched is permanent: retrying forever on
// failure text nobody anticipated helps no one.
func (c *Classifier) Classify(message string) Kind {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return KindPermanent
	}
	for _, re := range c.permanent {
		if re.MatchString(msg) {
			return KindPermanent
		}
	}
	for _, re := range c.transient {
		if re.MatchString(msg) {
			return KindTransient
		}
	}
	return KindPermanent
}
