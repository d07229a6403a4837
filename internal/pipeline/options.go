package pipeline

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"go-medical-analyzer/internal/ensemble"
	"go-medical-analyzer/internal/provider"
)

// RunOptions provides per-request configuration of the fallback chain
type RunOptions struct {
	// Providers excluded from this run, by name
	Skip []string

	// Number of findings kept in the result
	TopN int
}

// DefaultOptions returns default run options
func DefaultOptions() RunOptions {
	return RunOptions{
		TopN: ensemble.DefaultTopK,
	}
}

// LocalOptions returns options that keep the image on this host
func LocalOptions() RunOptions {
	return DefaultOptions().WithSkip(provider.NameRemoteVision)
}

// WithSkip returns options that also exclude the named providers
func (opts RunOptions) WithSkip(names ...string) RunOptions {
	opts.Skip = append(slices.Clone(opts.Skip), names...)
	return opts
}

// WithTopN returns options keeping n findings
func (opts RunOptions) WithTopN(n int) RunOptions {
	opts.TopN = n
	return opts
}

func (opts RunOptions) skips(name string) bool {
	return slices.Contains(opts.Skip, name)
}

func (opts RunOptions) topN() int {
	if opts.TopN <= 0 || opts.TopN > ensemble.DefaultTopK {
		return ensemble.DefaultTopK
	}
	return opts.TopN
}

// Key identifies the options in cache keys. Equivalent options give the
// same key.
func (opts RunOptions) Key() string {
	skip := slices.Clone(opts.Skip)
	sort.Strings(skip)
	skip = slices.Compact(skip)
	return "skip=" + strings.Join(skip, ",") + ";top=" + strconv.Itoa(opts.topN())
}
