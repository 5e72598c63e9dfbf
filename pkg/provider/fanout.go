package provider

import (
	"context"
	"fmt"
	"sync"
)

// FanOut calls every provider concurrently and waits for all of them.
// Results come back in the order of providers. One provider failing, or
// panicking, never cancels or hides the others.
func FanOut(ctx context.Context, providers []Provider, prompt string) []Result {
	results := make([]Result, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = safeGenerate(ctx, p, prompt)
		}()
	}
	wg.Wait()

	return results
}

// GenerateWithFailover runs a single-call stage. The primary is prefer when
// configured, else local. When the primary errors or times out and
// openrouter is configured and was not the primary, openrouter is called
// once and its result returned.
func (r *Registry) GenerateWithFailover(ctx context.Context, prefer Name, prompt string) Result {
	primary, ok := r.Primary(prefer)
	if !ok {
		return NotConfigured(prefer)
	}

	res := safeGenerate(ctx, primary, prompt)
	if !res.Outcome.Failed() || primary.Name() == OpenRouter || !r.Configured(OpenRouter) {
		return res
	}

	return safeGenerate(ctx, r.providers[OpenRouter], prompt)
}

// GeneratePrimary calls the primary provider for prefer once, without
// failover.
func (r *Registry) GeneratePrimary(ctx context.Context, prefer Name, prompt string) Result {
	primary, ok := r.Primary(prefer)
	if !ok {
		return NotConfigured(prefer)
	}
	return safeGenerate(ctx, primary, prompt)
}

func safeGenerate(ctx context.Context, p Provider, prompt string) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Errored(p.Name(), fmt.Sprintf("panic: %v", rec), nil)
		}
	}()
	return p.Generate(ctx, prompt)
}
