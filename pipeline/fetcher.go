package pipeline

import (
	"github.com/SecOpsGit/EXEgesis/sim"
)

// FetcherConfig tunes the Fetcher.
type FetcherConfig struct {
	// Width is the maximum number of instruction indices fetched per cycle.
	Width int
}

// A Fetcher pulls instruction indices from the instruction source and
// pushes them into the fetch buffer. It stalls when the buffer lacks
// capacity.
type Fetcher struct {
	*sim.ComponentBase

	config FetcherConfig
	source InstructionSource
	out    sim.Buffer
}

// NewFetcher creates a Fetcher.
func NewFetcher(
	name string,
	config FetcherConfig,
	source InstructionSource,
	out sim.Buffer,
) *Fetcher {
	widthMustBePositive(config.Width)

	return &Fetcher{
		ComponentBase: sim.NewComponentBase(name),
		config:        config,
		source:        source,
		out:           out,
	}
}

// Tick fetches up to Width instruction indices.
func (f *Fetcher) Tick(_ sim.VCycle) (madeProgress bool) {
	for i := 0; i < f.config.Width; i++ {
		index, ok := f.source.Peek()
		if !ok {
			return madeProgress
		}

		if !f.out.CanPush() {
			return madeProgress
		}

		f.source.Consume()
		f.out.Push(index)
		madeProgress = true
	}

	return madeProgress
}
