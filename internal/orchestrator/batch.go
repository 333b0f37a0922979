// internal/orchestrator/batch.go

package orchestrator

import (
	"context"
	"sort"
	"sync"

	"hostman/internal/apperr"
	"hostman/internal/logging"
	"hostman/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxParallel caps concurrent host operations in a batch. Hosts are
// independent, but the lab uplink is not infinite.
const maxParallel = 8

// Dispatcher is what the orchestrators need from the SSH layer. The
// concrete implementation lives in internal/ssh; tests inject fakes.
type Dispatcher interface {
	Run(ctx context.Context, spec models.ResolvedSpec, command string) models.ExecutionResult
	Dispatch(ctx context.Context, spec models.ResolvedSpec, command string, opts models.DispatchOptions) models.ExecutionResult
}

// Tester verifies reachability of one host without side effects.
type Tester interface {
	Test(ctx context.Context, spec models.ResolvedSpec) (bool, string)
}

// Batch fans one command out across configured hosts and aggregates per-host
// results. A failure against one host never aborts or taints another; the
// result map always holds exactly one entry per requested name.
type Batch struct {
	specs map[string]models.ResolvedSpec
	exec  Dispatcher
	test  Tester
	log   zerolog.Logger
}

func NewBatch(specs map[string]models.ResolvedSpec, exec Dispatcher, test Tester) *Batch {
	return &Batch{
		specs: specs,
		exec:  exec,
		test:  test,
		log:   logging.Component("batch"),
	}
}

// targets returns the requested subset, or every configured host in sorted
// order when names is empty. Unknown names are kept so they surface as
// per-name configuration errors rather than aborting the batch.
func (b *Batch) targets(names []string) []string {
	if len(names) > 0 {
		return names
	}
	all := make([]string, 0, len(b.specs))
	for name := range b.specs {
		all = append(all, name)
	}
	sort.Strings(all)
	return all
}

// ExecuteAll runs command in the foreground on each target host.
func (b *Batch) ExecuteAll(ctx context.Context, command string, names ...string) map[string]models.ExecutionResult {
	return b.fanOut(ctx, names, func(ctx context.Context, spec models.ResolvedSpec) models.ExecutionResult {
		return b.exec.Run(ctx, spec, command)
	})
}

// DispatchAll launches command as a detached background process on each
// target host. When a session name is set it is suffixed per host, since
// tmux session names only need to be unique host-locally but results read
// better when they match the host.
func (b *Batch) DispatchAll(ctx context.Context, command string, opts models.DispatchOptions, names ...string) map[string]models.ExecutionResult {
	return b.fanOut(ctx, names, func(ctx context.Context, spec models.ResolvedSpec) models.ExecutionResult {
		hostOpts := opts
		if hostOpts.Session != "" {
			hostOpts.Session = hostOpts.Session + "-" + spec.Name
		}
		return b.exec.Dispatch(ctx, spec, command, hostOpts)
	})
}

// TestAll probes reachability of each target host. The diagnostics map only
// has entries for hosts that failed.
func (b *Batch) TestAll(ctx context.Context, names ...string) (map[string]bool, map[string]string) {
	ok := make(map[string]bool)
	diags := make(map[string]string)
	results := b.fanOut(ctx, names, func(ctx context.Context, spec models.ResolvedSpec) models.ExecutionResult {
		good, diag := b.test.Test(ctx, spec)
		return models.ExecutionResult{Success: good, Error: diag, ConnectionInfo: spec.ConnectionInfo()}
	})
	for name, res := range results {
		ok[name] = res.Success
		if res.Error != "" {
			diags[name] = res.Error
		}
	}
	return ok, diags
}

// fanOut applies op to every target concurrently and collects results keyed
// by host name, independent of completion order. After ctx is cancelled no
// new host operation starts; in-flight ones run to their own timeout.
func (b *Batch) fanOut(ctx context.Context, names []string, op func(context.Context, models.ResolvedSpec) models.ExecutionResult) map[string]models.ExecutionResult {
	targets := b.targets(names)
	results := make(map[string]models.ExecutionResult, len(targets))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(maxParallel)

	for _, name := range targets {
		name := name
		g.Go(func() error {
			var res models.ExecutionResult
			spec, known := b.specs[name]
			switch {
			case !known:
				res = models.ExecutionResult{
					Error: apperr.Config(name, "", "host not found in configuration").Error(),
				}
			case ctx.Err() != nil:
				res = models.ExecutionResult{
					Error:          "cancelled before start: " + ctx.Err().Error(),
					ConnectionInfo: spec.ConnectionInfo(),
				}
			default:
				res = op(ctx, spec)
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; failures live in their results.
	_ = g.Wait()

	b.log.Debug().Int("hosts", len(targets)).Msg("batch complete")
	return results
}
