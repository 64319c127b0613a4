// Package checklogic implements check(fqdn) -> status (spec.md §4.2),
// composing internal/resolver's DNS phase and internal/whois's WHOIS phase
// in the exact order and fall-through semantics spec.md specifies.
package checklogic

import (
	"context"
	"time"

	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/resolver"
	"github.com/exddc/domain-discovery-go/internal/validator"
	"github.com/exddc/domain-discovery-go/internal/whois"
)

// Checker composes the DNS and WHOIS phases with a shared per-phase
// timeout.
type Checker struct {
	// Timeout bounds each phase independently (default 3s,
	// DOMAIN_CHECKER_DNS_TIMEOUT, spec.md §6).
	Timeout time.Duration
	// Upstreams lists DNS servers to probe, in order.
	Upstreams []string
}

// NewChecker builds a Checker with the given per-phase timeout and DNS
// upstreams.
func NewChecker(timeout time.Duration, upstreams []string) *Checker {
	return &Checker{Timeout: timeout, Upstreams: upstreams}
}

// Check runs the DNS-then-WHOIS phased probe described in spec.md §4.2.
// The Validator must already have accepted fqdn; Check still defends
// against the "must not happen in practice" IDNA-encoding-error case by
// returning invalid rather than panicking.
func (c *Checker) Check(ctx context.Context, fqdn string) models.WorkerStatus {
	if !validator.IsValid(fqdn) {
		return models.WorkerStatusInvalid
	}

	dnsCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	outcome, err := resolver.CheckRegistered(dnsCtx, fqdn, c.Timeout, c.Upstreams)
	cancel()

	switch {
	case err != nil && dnsCtx.Err() != nil:
		// Phase timed out without a definitive answer.
		return models.WorkerStatusNonConclusive
	case outcome == resolver.OutcomeRegistered:
		return models.WorkerStatusRegistered
	case outcome == resolver.OutcomeNoSuchHost:
		// gaierror-equivalent: fall through to WHOIS.
	default:
		return models.WorkerStatusNonConclusive
	}

	whoisCtx, whoisCancel := context.WithTimeout(ctx, c.Timeout)
	verdict, err := whois.Lookup(whoisCtx, fqdn, c.Timeout)
	whoisCancel()

	if err != nil {
		return models.WorkerStatusNonConclusive
	}

	switch verdict {
	case whois.VerdictFree:
		return models.WorkerStatusFree
	case whois.VerdictRegistered:
		return models.WorkerStatusRegistered
	default:
		return models.WorkerStatusNonConclusive
	}
}
