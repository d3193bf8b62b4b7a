package auction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sovrn-labs/trustedserver/internal/observability"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Orchestrator runs one configured auction round: parallel fan-out to every
// registered provider with a per-provider timeout, an optional mediation
// pass, and max-price-per-slot winner selection. It is safe for concurrent
// use across requests; registration happens once at startup.
type Orchestrator struct {
	timeout   time.Duration
	metrics   observability.MetricsRegistry
	mu        sync.RWMutex
	order     []string
	providers map[string]Provider
	mediator  Provider
}

// NewOrchestrator builds an Orchestrator with the configured round timeout.
// A non-positive timeoutMS disables the deadline (providers are bounded
// only by the caller's context).
func NewOrchestrator(timeoutMS int, metrics observability.MetricsRegistry) *Orchestrator {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Orchestrator{
		timeout:   time.Duration(timeoutMS) * time.Millisecond,
		metrics:   metrics,
		providers: make(map[string]Provider),
	}
}

// RegisterProvider adds a bidding participant. Registration order breaks
// ties when two bids for the same slot tie on price.
func (o *Orchestrator) RegisterProvider(p Provider) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.providers[p.ID()]; !exists {
		o.order = append(o.order, p.ID())
	}
	o.providers[p.ID()] = p
}

// SetMediator registers the auction participant invoked after bidding with
// access to every provider's response. A mediator is how encoded-price
// bids (APS/TAM) get decoded into a comparable price.
func (o *Orchestrator) SetMediator(p Provider) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mediator = p
}

// ProviderCount returns the number of registered bidding providers
// (excluding the mediator, if any).
func (o *Orchestrator) ProviderCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.providers)
}

// Run executes one auction round. It never returns an error: a provider
// that times out or panics contributes an Error response rather than
// aborting the round (AuctionEmpty is a 200 with empty bids, not an HTTP
// error — see the orchestrator's error-handling policy).
func (o *Orchestrator) Run(ctx context.Context, req *Request) OrchestrationResult {
	start := time.Now()

	o.mu.RLock()
	order := append([]string(nil), o.order...)
	providers := make([]Provider, 0, len(order))
	for _, id := range order {
		providers = append(providers, o.providers[id])
	}
	mediator := o.mediator
	o.mu.RUnlock()

	responses := make([]Response, len(providers))
	callErrs := make([]error, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			responses[i], callErrs[i] = o.callProvider(ctx, p, req, Context{TimeoutMS: int(o.timeout / time.Millisecond)})
		}(i, p)
	}
	wg.Wait()

	// Winner selection among direct bidders happens before mediation so a
	// mediator's picks can cleanly override them per overlapping slot.
	winners := selectWinners(order, responses)

	if mediator != nil {
		m, mErr := o.callProvider(ctx, mediator, req, Context{
			TimeoutMS:         int(o.timeout / time.Millisecond),
			ProviderResponses: append([]Response(nil), responses...),
		})
		responses = append(responses, m)
		callErrs = append(callErrs, mErr)
		for _, bid := range m.Bids {
			if bid.Price != nil {
				winners[bid.SlotID] = bid
			}
		}
	}

	for _, resp := range responses {
		o.metrics.IncrementAuctionBids(resp.Provider, string(resp.Status))
	}

	if len(winners) == 0 {
		o.metrics.IncrementNoBids()
	}

	// Provider failures never abort the round — they're aggregated here
	// purely so one log line can report every failure for this round
	// instead of one per provider.
	if combined := multierr.Combine(callErrs...); combined != nil {
		zap.L().Warn("auction round had provider failures", zap.String("request_id", req.ID), zap.Error(combined))
	}

	elapsed := time.Since(start)
	o.metrics.RecordAuctionRoundLatency(elapsed)

	result := OrchestrationResult{
		ProviderResponses: responses,
		WinningBids:       winners,
		TotalTimeMS:       elapsed.Milliseconds(),
		Strategy:          strategyName(mediator != nil),
	}
	return result
}

func strategyName(hasMediator bool) string {
	if hasMediator {
		return "parallel_mediation"
	}
	return "parallel_only"
}

// callProvider invokes one provider under its own timeout and recovers
// from a panic, converting either into an Error response. The returned
// error is never fatal to the round — callers aggregate it for a single
// combined log line, nothing more.
func (o *Orchestrator) callProvider(parent context.Context, p Provider, req *Request, actx Context) (Response, error) {
	providerCtx := parent
	var cancel context.CancelFunc
	if o.timeout > 0 {
		providerCtx, cancel = context.WithTimeout(parent, o.timeout)
		defer cancel()
	}

	start := time.Now()
	type outcome struct {
		resp  Response
		panic any
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{resp: errorResponse(p.ID(), time.Since(start).Milliseconds()), panic: r}
			}
		}()
		done <- outcome{resp: p.Bid(providerCtx, req, actx)}
	}()

	select {
	case out := <-done:
		o.metrics.RecordAuctionProviderLatency(p.ID(), time.Since(start))
		if out.panic != nil {
			return out.resp, fmt.Errorf("provider %s panicked: %v", p.ID(), out.panic)
		}
		if out.resp.Status == BidStatusError {
			return out.resp, fmt.Errorf("provider %s returned an error response", p.ID())
		}
		return out.resp, nil
	case <-providerCtx.Done():
		o.metrics.RecordAuctionProviderLatency(p.ID(), time.Since(start))
		return errorResponse(p.ID(), time.Since(start).Milliseconds()), fmt.Errorf("provider %s: %w", p.ID(), providerCtx.Err())
	}
}

// selectWinners picks, per slot, the highest-priced bid across every
// response. Equal prices are broken by provider registration order
// (earlier-registered providers win ties).
func selectWinners(order []string, responses []Response) map[string]Bid {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}

	winners := make(map[string]Bid)
	winnerRank := make(map[string]int)

	for _, resp := range responses {
		for _, bid := range resp.Bids {
			if bid.Price == nil {
				continue // unmediated encoded-price bid; dropped, not comparable
			}
			current, exists := winners[bid.SlotID]
			if !exists {
				winners[bid.SlotID] = bid
				winnerRank[bid.SlotID] = rank[bid.Bidder]
				continue
			}
			if *bid.Price > *current.Price {
				winners[bid.SlotID] = bid
				winnerRank[bid.SlotID] = rank[bid.Bidder]
			} else if *bid.Price == *current.Price && rank[bid.Bidder] < winnerRank[bid.SlotID] {
				winners[bid.SlotID] = bid
				winnerRank[bid.SlotID] = rank[bid.Bidder]
			}
		}
	}
	return winners
}
