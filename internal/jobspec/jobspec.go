// Package jobspec defines the two job payload shapes carried over the
// Work Queue Client (spec.md §6): a single-domain check and a batch
// recheck sweep. Shared between internal/dispatcher (producer) and
// internal/worker (consumer) so neither package depends on the other.
package jobspec

// Function names registered against queue.Client.RegisterHandler.
const (
	FnSingleDomainCheck = "handle_single_domain_check"
	FnDomainRecheck     = "handle_domain_recheck"
)

// SingleCheckArgs is handle_single_domain_check's input.
type SingleCheckArgs struct {
	FQDN             string `json:"fqdn"`
	EnqueuedAtEpochS int64  `json:"enqueued_at_epoch_seconds"`
}

// SingleCheckResult is handle_single_domain_check's output.
type SingleCheckResult struct {
	Domain       string  `json:"domain"`
	Status       string  `json:"status"`
	WorkerID     string  `json:"worker_id"`
	ProcessingMs float64 `json:"processing_time_ms"`
	QueueWaitMs  float64 `json:"queue_wait_time_ms"`
}

// RecheckArgs is handle_domain_recheck's input: a batch of fqdns selected
// by the Idle Recheck loop.
type RecheckArgs struct {
	FQDNs []string `json:"fqdns"`
}

// RecheckResultEntry is one element of handle_domain_recheck's output.
type RecheckResultEntry struct {
	Domain string `json:"domain"`
	Status string `json:"status"`
}
