package models

import (
	"fmt"
	"net/url"
	"strings"
)

// Priority buckets leads by intent score. Derived by the aggregator only;
// any value set upstream is overwritten during aggregation.
type Priority string

const (
	PriorityHot  Priority = "hot"  // intent_score >= 80
	PriorityWarm Priority = "warm" // 60 <= intent_score < 80
	PriorityCold Priority = "cold" // intent_score < 60
)

// Source platform tags. Workers stamp their tag verbatim on every lead
// they emit; the aggregator counts by tag without remapping.
const (
	PlatformCommunity = "community"
	PlatformNews      = "news"
	PlatformLinkedIn  = "linkedin"
)

// Lead represents a prospective buyer surfaced by a source worker.
type Lead struct {
	// Identity
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Company    string `json:"company,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	Email      string `json:"email,omitempty"`

	// Qualification
	IntentSignal string   `json:"intent_signal"` // Short quote or reason this person is a prospect
	IntentScore  int      `json:"intent_score"`  // 0-100
	Priority     Priority `json:"priority,omitempty"`

	// Provenance
	SourcePlatform string `json:"source_platform"`
	SourceURL      string `json:"source_url,omitempty"`
}

// PriorityForScore derives the priority tier for an intent score.
// This derivation is the single source of truth.
func PriorityForScore(score int) Priority {
	switch {
	case score >= 80:
		return PriorityHot
	case score >= 60:
		return PriorityWarm
	default:
		return PriorityCold
	}
}

// Validate checks the structural invariants of a lead. A lead failing
// validation is dropped with a warning; it never fails its worker.
func (l *Lead) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("lead name is required")
	}
	if l.IntentScore < 0 || l.IntentScore > 100 {
		return fmt.Errorf("intent_score %d out of range [0,100]", l.IntentScore)
	}
	if l.IntentScore >= 60 && strings.TrimSpace(l.IntentSignal) == "" {
		return fmt.Errorf("intent_score %d requires a non-empty intent_signal", l.IntentScore)
	}
	if strings.TrimSpace(l.SourcePlatform) == "" {
		return fmt.Errorf("source_platform is required")
	}
	return nil
}

// DedupeKey computes the canonical identity of a lead. Rules in priority
// order: normalized profile URL, then (name, company), then email, then
// name alone. Keys are prefixed per rule so values from different rules
// can never collide.
func (l *Lead) DedupeKey() string {
	if u := NormalizeProfileURL(l.ProfileURL); u != "" {
		return "url:" + u
	}
	name := normalizeText(l.Name)
	company := normalizeText(l.Company)
	if name != "" && company != "" {
		return "nc:" + name + "|" + company
	}
	if email := normalizeText(l.Email); email != "" {
		return "email:" + email
	}
	return "name:" + name
}

// NormalizeProfileURL canonicalizes a profile URL for identity comparison:
// lowercased host without "www.", path without trailing slash, query and
// fragment dropped. Returns "" when the URL is absent or unparseable.
func NormalizeProfileURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimRight(parsed.Path, "/")
	return host + strings.ToLower(path)
}

// normalizeText lowercases and collapses internal whitespace
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
