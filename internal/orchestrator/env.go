// internal/orchestrator/env.go

package orchestrator

import (
	"context"
	"time"

	"hostman/internal/apperr"
	"hostman/internal/logging"
	"hostman/internal/models"

	"github.com/rs/zerolog"
)

// Env sequences ordered environment setup and teardown steps across hosts.
// Steps run strictly in caller order; an optional wait after a step is a
// hard barrier before the next one dispatches.
//
// Setup is best-effort: a failing step is recorded and the sequence moves
// on, unless the step is critical, in which case the remaining steps are
// marked skipped. Teardown never halts early — abandoning cleanup on first
// failure risks leaving the environment in a worse state than finishing it.
type Env struct {
	specs map[string]models.ResolvedSpec
	exec  Dispatcher
	log   zerolog.Logger
}

func NewEnv(specs map[string]models.ResolvedSpec, exec Dispatcher) *Env {
	return &Env{
		specs: specs,
		exec:  exec,
		log:   logging.Component("env"),
	}
}

// Setup runs the steps in order with critical-halt semantics.
func (e *Env) Setup(ctx context.Context, steps []models.Step) models.EnvironmentResult {
	return e.run(ctx, steps, true)
}

// Cleanup runs the steps in order, attempting every one regardless of
// earlier failures.
func (e *Env) Cleanup(ctx context.Context, steps []models.Step) models.EnvironmentResult {
	return e.run(ctx, steps, false)
}

func (e *Env) run(ctx context.Context, steps []models.Step, haltOnCritical bool) models.EnvironmentResult {
	result := models.EnvironmentResult{
		OverallSuccess: true,
		Steps:          make([]models.StepResult, 0, len(steps)),
	}

	halted := false
	for i, step := range steps {
		sr := models.StepResult{Name: step.Name, Target: step.Target}

		if halted || ctx.Err() != nil {
			sr.Skipped = true
			result.Steps = append(result.Steps, sr)
			continue
		}

		e.log.Info().Int("step", i+1).Str("name", step.Name).Str("target", step.Target).Msg("running step")

		spec, known := e.specs[step.Target]
		if !known {
			sr.Error = apperr.Config(step.Target, "", "host not found in configuration").Error()
			result.OverallSuccess = false
			if step.Critical && haltOnCritical {
				halted = true
			}
			result.Steps = append(result.Steps, sr)
			continue
		}

		var er models.ExecutionResult
		if step.Foreground {
			er = e.exec.Run(ctx, spec, step.Command)
		} else {
			er = e.exec.Dispatch(ctx, spec, step.Command, models.DispatchOptions{
				Session: step.Session,
				LogPath: step.LogPath,
			})
		}

		sr.Success = er.Success
		sr.PID = er.PID
		sr.Error = er.Error
		result.Steps = append(result.Steps, sr)

		if !er.Success {
			result.OverallSuccess = false
			e.log.Error().Str("name", step.Name).Str("error", er.Error).Msg("step failed")
			if step.Critical && haltOnCritical {
				e.log.Error().Str("name", step.Name).Msg("critical step failed, skipping the rest")
				halted = true
			}
			continue
		}

		if step.Wait > 0 {
			e.log.Info().Dur("wait", step.Wait).Str("name", step.Name).Msg("waiting after step")
			if !sleepCtx(ctx, step.Wait) {
				// Cancellation during the wait skips the remaining steps.
				continue
			}
		}
	}

	return result
}

// sleepCtx waits for d or until ctx is cancelled, reporting whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
