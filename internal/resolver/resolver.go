// Package resolver implements the Domain Check Logic's DNS phase
// (spec.md §4.2 step 1): a bounded-retry A-record existence probe against
// configured upstream resolvers.
//
// Adapted from the teacher's multi-protocol, multi-record-type query
// engine (internal/resolver/resolver.go): AdGuard dnsproxy's upstream
// package still does the protocol handling and miekg/dns still builds the
// query, but the record-type switch and multi-protocol fan-out are trimmed
// down to the single A-record/NXDOMAIN distinction this domain needs.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdguardTeam/dnsproxy/upstream"
	"github.com/miekg/dns"
	"github.com/exddc/domain-discovery-go/internal/metrics"
)

const (
	// DefaultTimeout is the default per-phase DNS timeout
	// (DOMAIN_CHECKER_DNS_TIMEOUT, spec.md §6).
	DefaultTimeout = 3 * time.Second

	// RetryDelay is the brief delay between retries, carried from the
	// teacher's QueryServer retry loop.
	RetryDelay = 100 * time.Millisecond

	// DefaultRetries is the default retry count for a single probe.
	DefaultRetries = 3

	// DefaultUpstream is used when no upstream servers are configured.
	DefaultUpstream = "udp://1.1.1.1:53"
)

// Outcome is the DNS phase's definitive result.
type Outcome int

const (
	// OutcomeRegistered: at least one A answer was returned (NOERROR).
	OutcomeRegistered Outcome = iota
	// OutcomeNoSuchHost: NXDOMAIN — fall through to the WHOIS phase.
	OutcomeNoSuchHost
	// OutcomeNonConclusive: the phase timed out without a definitive
	// answer.
	OutcomeNonConclusive
)

// CheckRegistered probes fqdn's A record against each configured upstream
// in turn, stopping at the first definitive answer. It retries each
// upstream DefaultRetries times with RetryDelay between attempts, mirroring
// the teacher's QueryServer retry loop in structure.
func CheckRegistered(ctx context.Context, fqdn string, timeout time.Duration, upstreams []string) (Outcome, error) {
	if len(upstreams) == 0 {
		upstreams = []string{DefaultUpstream}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(fqdn), dns.TypeA)
	msg.RecursionDesired = true

	var lastErr error

	for _, target := range upstreams {
		outcome, err := queryOneUpstream(ctx, msg, target, timeout)
		if err == nil {
			return outcome, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return OutcomeNonConclusive, fmt.Errorf("context cancelled: %w", ctx.Err())
		}
	}

	return OutcomeNonConclusive, lastErr
}

func queryOneUpstream(ctx context.Context, msg *dns.Msg, target string, timeout time.Duration) (Outcome, error) {
	var response *dns.Msg
	var err error
	var rtt time.Duration

	for attempt := 0; attempt < DefaultRetries; attempt++ {
		select {
		case <-ctx.Done():
			return OutcomeNonConclusive, ctx.Err()
		default:
		}

		response, rtt, err = performQuery(ctx, msg, target, timeout)
		if err == nil && response != nil {
			break
		}

		if ctx.Err() != nil {
			return OutcomeNonConclusive, ctx.Err()
		}

		if attempt < DefaultRetries-1 {
			time.Sleep(RetryDelay)
		}
	}

	if err != nil || response == nil {
		metrics.ResolverQueryErrors.WithLabelValues(target, "query_failed").Inc()
		return OutcomeNonConclusive, fmt.Errorf("query against %s failed: %w", target, err)
	}

	metrics.RecordResolverQuery(target, dns.RcodeToString[response.Rcode], rtt.Seconds())

	switch response.Rcode {
	case dns.RcodeNameError:
		return OutcomeNoSuchHost, nil
	case dns.RcodeSuccess:
		if len(response.Answer) > 0 {
			return OutcomeRegistered, nil
		}
		return OutcomeNoSuchHost, nil
	default:
		return OutcomeNonConclusive, fmt.Errorf("unexpected rcode %d from %s", response.Rcode, target)
	}
}

// performQuery runs a single exchange against an upstream target, carried
// over from the teacher verbatim in structure: AddressToUpstream handles
// scheme parsing, port defaults, and IPv6 brackets; Exchange runs in a
// goroutine so ctx cancellation can interrupt it.
func performQuery(ctx context.Context, msg *dns.Msg, target string, timeout time.Duration) (*dns.Msg, time.Duration, error) {
	start := time.Now()

	up, err := upstream.AddressToUpstream(target, &upstream.Options{Timeout: timeout})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create upstream %s: %w", target, err)
	}
	defer func() {
		if cerr := up.Close(); cerr != nil {
			slog.Warn("resolver: closing upstream", "target", target, "error", cerr)
		}
	}()

	type result struct {
		resp *dns.Msg
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := up.Exchange(msg)
		resultCh <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("query cancelled: %w", ctx.Err())
	case res := <-resultCh:
		if res.err != nil {
			return nil, 0, fmt.Errorf("DNS query failed: %w", res.err)
		}
		return res.resp, time.Since(start), nil
	}
}
