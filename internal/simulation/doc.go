// Package simulation drives cmr engines through whole free-recall trials.
//
// A Scenario names the engine kind, the study list, and the parameters. The
// Runner builds a fresh engine per trial (each trial is an independent
// simulated subject with its own seeded generator), encodes the study list,
// and free-recalls until the engine stops. Trials run sequentially; the
// runner never shares an engine between trials.
//
// Likelihood replays observed recall sequences through ForceRecall and
// accumulates the log probability the model assigns to each observed choice,
// including the final stop.
//
// Usage:
//
//	r := simulation.NewRunner(simulation.WithLogger(logger))
//	result, err := r.Run(ctx, simulation.Scenario{
//	    Name:       "ltp-16",
//	    Kind:       cmr.KindClassic,
//	    ItemCount:  16,
//	    Parameters: params,
//	    Trials:     500,
//	    Seed:       1,
//	})
//	summary := simulation.Summarize(result)
package simulation
