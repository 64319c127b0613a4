// Package models defines the domain-discovery data model: candidate
// domains, check results, and the persistent domain/suggestion/metrics
// records (spec §3), plus the HTTP request/response DTOs for the
// Orchestrator's external surface.
package models

import (
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// WorkerStatus is the worker-side, 4-valued status produced by the Domain
// Check Logic. Kept distinct from Status (the API-side 3-valued status)
// per spec.md §9's "status taxonomy bridge" design note.
type WorkerStatus string

const (
	WorkerStatusFree          WorkerStatus = "free"
	WorkerStatusRegistered    WorkerStatus = "registered"
	WorkerStatusNonConclusive WorkerStatus = "non_conclusive"
	WorkerStatusInvalid       WorkerStatus = "invalid"
)

// Status is the API-side, 3-valued domain status.
type Status string

const (
	StatusAvailable  Status = "available"
	StatusRegistered Status = "registered"
	StatusUnknown    Status = "unknown"
)

// MapWorkerStatus bridges the worker's 4-valued status to the API's
// 3-valued status: free->available, registered->registered, else->unknown.
func MapWorkerStatus(s WorkerStatus) Status {
	switch s {
	case WorkerStatusFree:
		return StatusAvailable
	case WorkerStatusRegistered:
		return StatusRegistered
	default:
		return StatusUnknown
	}
}

// CandidateDomain is a transient, lowercased FQDN with its public-suffix
// split, derived on first use via golang.org/x/net/publicsuffix (the same
// library the example pack's xx25-nodelistdb uses for registrable-domain
// extraction).
type CandidateDomain struct {
	FQDN            string `json:"fqdn"`
	RegistrablePart string `json:"registrable_part"`
	PublicSuffix    string `json:"public_suffix"`
}

// NewCandidateDomain lowercases fqdn and derives its registrable part and
// public suffix. If the domain's suffix is not ICANN-managed,
// RegistrablePart/PublicSuffix are left empty; if only the registrable
// part cannot be derived, PublicSuffix is kept and RegistrablePart is left
// empty. It never fails — the Validator is the authority on rejecting a
// candidate outright.
func NewCandidateDomain(fqdn string) CandidateDomain {
	lower := strings.ToLower(strings.TrimSpace(fqdn))
	lower = strings.TrimSuffix(lower, ".")

	c := CandidateDomain{FQDN: lower}

	suffix, icann := publicsuffix.PublicSuffix(lower)
	if !icann {
		return c
	}
	c.PublicSuffix = suffix

	reg, err := publicsuffix.EffectiveTLDPlusOne(lower)
	if err != nil {
		return c
	}
	c.RegistrablePart = strings.TrimSuffix(reg, "."+suffix)
	return c
}

// CheckResult is the transient result produced by exactly one worker.
type CheckResult struct {
	FQDN         string       `json:"fqdn"`
	Status       WorkerStatus `json:"status"`
	WorkerID     string       `json:"worker_id"`
	ProcessingMs float64      `json:"processing_ms"`
	QueueWaitMs  float64      `json:"queue_wait_ms"`
}

// DomainRecord is the persistent, per-fqdn record.
// @Description Persistent domain availability record
type DomainRecord struct {
	FQDN            string     `json:"fqdn"`
	RegistrablePart string     `json:"registrable_part"`
	PublicSuffix    string     `json:"public_suffix"`
	Status          Status     `json:"status" example:"available"`
	LastChecked     *time.Time `json:"last_checked,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	SuggestionID    string     `json:"suggestion_id,omitempty"`
	Upvotes         int        `json:"upvotes"`
	Downvotes       int        `json:"downvotes"`
}

// SuggestionRecord is created exactly once per user-facing request.
// @Description Persistent suggestion request record
type SuggestionRecord struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	TargetCount int       `json:"target_count"`
	Model       string    `json:"model"`
	PromptID    string    `json:"prompt_id"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MetricsRecord is persisted once at orchestrator completion, one-to-one
// with a SuggestionRecord.
// @Description Per-request metrics snapshot
type MetricsRecord struct {
	SuggestionID      string         `json:"suggestion_id"`
	TotalDurationMs   float64        `json:"total_duration_ms"`
	LLMDurationMs     float64        `json:"llm_duration_ms"`
	WorkerDurationMs  float64        `json:"worker_duration_ms"`
	TimeToFirstMs     *float64       `json:"time_to_first_suggestion_ms,omitempty"`
	LLMDurations      []float64      `json:"llm_durations_ms"`
	WorkerDurations   []float64      `json:"worker_durations_ms"`
	RetryCount        int            `json:"retry_count"`
	LLMCallCount      int            `json:"llm_call_count"`
	WorkerJobCount    int            `json:"worker_job_count"`
	ErrorCount        int            `json:"error_count"`
	Errors            []string       `json:"errors,omitempty"`
	TotalGenerated    int            `json:"total_domains_generated"`
	UniqueGenerated   int            `json:"unique_domains_generated"`
	DomainsByStatus   map[Status]int `json:"domains_by_status"`
	LLMTokensTotal    int            `json:"llm_tokens_total"`
	LLMTokensPrompt   int            `json:"llm_tokens_prompt"`
	LLMTokensComplete int            `json:"llm_tokens_completion"`
	QueueDepthAtStart int64          `json:"queue_depth_at_start"`
	AvailableCount    int            `json:"available_count"`
	RegisteredCount   int            `json:"registered_count"`
	UnknownCount      int            `json:"unknown_count"`
	DomainsReturned   int            `json:"domains_returned"`
	SuccessRate       float64        `json:"success_rate"`
	ReachedTarget     bool           `json:"reached_target"`
	CreatedAt         time.Time      `json:"created_at"`
}

// WorkerMetrics is a cumulative, per-worker_id record updated additively.
type WorkerMetrics struct {
	WorkerID          string    `json:"worker_id"`
	TotalJobs         int64     `json:"total_jobs"`
	TotalProcessingMs float64   `json:"total_processing_ms"`
	TotalQueueWaitMs  float64   `json:"total_queue_wait_ms"`
	LastSeen          time.Time `json:"last_seen"`
}

// QueueSnapshot is an append-only telemetry row written post-enqueue and
// post-drain by the Check Dispatcher.
type QueueSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	QueueDepth    int64     `json:"queue_depth"`
	ActiveWorkers int       `json:"active_workers"`
}

// DomainRating is one rater's vote on one domain (§7 supplement).
// RaterKey is "user:<id>" or "anon:<id>"; one row per (FQDN, RaterKey).
type DomainRating struct {
	FQDN      string    `json:"fqdn"`
	RaterKey  string    `json:"rater_key"`
	Vote      int       `json:"vote"` // +1 or -1
	CreatedAt time.Time `json:"created_at"`
}

// PromptType selects an LLM Client prompt template (spec.md §4.4).
type PromptType string

const (
	PromptTypeLegacy       PromptType = "legacy"
	PromptTypeLexicon      PromptType = "lexicon"
	PromptTypePersonalized PromptType = "personalized"
	PromptTypeSimilar      PromptType = "similar"
)

// SuggestionRequest is the Orchestrator's external HTTP request body.
// @Description Domain suggestion request
type SuggestionRequest struct {
	Description string     `json:"description" example:"italian restaurant in berlin"`
	TargetCount int        `json:"target_count" example:"3"`
	PromptType  PromptType `json:"prompt_type,omitempty" example:"legacy"`
	UserID      string     `json:"user_id,omitempty"`
	AnonID      string     `json:"anon_id,omitempty"`
	SourceFQDN  string     `json:"source_fqdn,omitempty"` // for prompt_type=similar
	Stream      bool       `json:"stream,omitempty"`
}

// SuggestionResult is a single returned domain record in the external
// response shape.
// @Description A single suggested domain with its current status
type SuggestionResult struct {
	FQDN         string    `json:"fqdn"`
	PublicSuffix string    `json:"public_suffix"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SuggestionsEvent is the streaming-mode "suggestions" SSE event payload.
type SuggestionsEvent struct {
	New            []SuggestionResult `json:"new"`
	Updates        []SuggestionResult `json:"updates"`
	AvailableCount int                `json:"available_count"`
	Total          int                `json:"total"`
}

// CompleteEvent is the terminal "complete" SSE event / buffered response
// payload.
// @Description Final suggestion result set
type CompleteEvent struct {
	Results        []SuggestionResult `json:"results"`
	AvailableCount int                `json:"available_count"`
	Total          int                `json:"total"`
	ReachedTarget  bool               `json:"reached_target"`
}

// RateDomainRequest is the §7 domain-rating endpoint's request body.
type RateDomainRequest struct {
	Vote   int    `json:"vote" example:"1"`
	UserID string `json:"user_id,omitempty"`
	AnonID string `json:"anon_id,omitempty"`
}

// HealthResponse indicates API health status.
// @Description Health check response
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Warning string `json:"warning,omitempty" example:"no active workers detected"`
}
