package cmr

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/cmr/internal/logging"
	"github.com/nvandessel/cmr/internal/vecmath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		items   int
		pres    int
		params  func() Parameters
		wantErr error
	}{
		{"unknown kind", Kind("bogus"), 3, 3, scenarioParams, ErrUnknownKind},
		{"zero items", KindClassic, 0, 3, scenarioParams, ErrInvalidDimensions},
		{"zero presentations", KindInstance, 3, 0, scenarioParams, ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.kind, tt.items, tt.pres, tt.params())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	t.Run("invalid parameters", func(t *testing.T) {
		p := scenarioParams()
		p.ChoiceSensitivity = 0
		_, err := NewClassic(3, 3, p)
		assert.Error(t, err)
	})
}

func TestNew_InitialState(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(string(kind), func(t *testing.T) {
			eng, err := New(kind, 3, 5, scenarioParams())
			require.NoError(t, err)

			assert.Equal(t, kind, eng.Kind())
			assert.Equal(t, 3, eng.ItemCount())
			assert.Equal(t, 5, eng.PresentationCount())
			assert.Equal(t, Idle, eng.State())
			assert.Empty(t, eng.Recall())
			assert.Equal(t, []float64{1, 0, 0, 0, 0}, eng.Context())
		})
	}
}

func TestExperience_EncodingIndex(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindClassic, 3},
		{KindInstance, 6},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			eng := newEncodedEngine(t, tt.kind, 3, scenarioParams())
			assert.Equal(t, tt.want, eng.EncodingIndex())
			assert.InDelta(t, 1.0, vecmath.Norm(eng.Context()), 1e-12)
		})
	}
}

func TestExperience_CapacityExceeded(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(string(kind), func(t *testing.T) {
			eng := newEncodedEngine(t, kind, 3, scenarioParams())
			index := eng.EncodingIndex()
			ctx := eng.Context()

			features, err := ItemFeatures(kind, 3)
			require.NoError(t, err)

			err = eng.Experience(features[:1])
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCapacityExceeded))
			assert.Equal(t, index, eng.EncodingIndex())
			assert.Equal(t, ctx, eng.Context())
		})
	}
}

func TestExperience_PartialBatchesAndWidth(t *testing.T) {
	eng, err := NewInstance(3, 4, scenarioParams())
	require.NoError(t, err)
	features, err := ItemFeatures(KindInstance, 3)
	require.NoError(t, err)

	require.NoError(t, eng.Experience(features[:2]))
	assert.Equal(t, 5, eng.EncodingIndex())

	err = eng.Experience([][]float64{{1, 0, 0}})
	assert.True(t, errors.Is(err, ErrInvalidDimensions))
	assert.Equal(t, 5, eng.EncodingIndex())

	err = eng.Experience(features)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.Equal(t, 5, eng.EncodingIndex())

	require.NoError(t, eng.Experience(features[2:]))
	require.NoError(t, eng.Experience(features[:1]))
	assert.Equal(t, 7, eng.EncodingIndex())
}

func TestOutcomeProbabilities_SumToOneAndExcludeRecalled(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(string(kind), func(t *testing.T) {
			eng := newEncodedEngine(t, kind, 5, scenarioParams())
			_, err := eng.BeginRecall()
			require.NoError(t, err)

			for _, choice := range []int{3, 1, 5, 2, 4} {
				p := eng.OutcomeProbabilities()
				require.Len(t, p, 6)
				assert.InDelta(t, 1.0, sum(p), 1e-9)
				for _, item := range eng.Recall() {
					assert.Equal(t, 0.0, p[item+1], "recalled item %d must have zero probability", item)
				}
				for _, x := range p {
					assert.GreaterOrEqual(t, x, 0.0)
				}

				_, err := eng.ForceRecall(choice)
				require.NoError(t, err)
			}

			p := eng.OutcomeProbabilities()
			assert.InDelta(t, 1.0, p[0], 1e-12, "only stopping is left once every item is recalled")
		})
	}
}

func TestOutcomeProbabilities_StopAtCeiling(t *testing.T) {
	params := scenarioParams()
	params.StopProbabilityScale = 1

	for _, kind := range allKinds {
		t.Run(string(kind), func(t *testing.T) {
			eng := newEncodedEngine(t, kind, 3, params)
			floor := eng.Memory().Floor()

			p := eng.OutcomeProbabilities()
			assert.InDelta(t, 1-3*floor, p[0], 1e-15)
			for _, x := range p[1:] {
				assert.Equal(t, floor, x)
			}
			assert.InDelta(t, 1.0, sum(p), 1e-12)
		})
	}
}

func TestOutcomeProbabilities_StopGrowsWithRecalls(t *testing.T) {
	eng := newEncodedEngine(t, KindClassic, 4, scenarioParams())
	_, err := eng.BeginRecall()
	require.NoError(t, err)

	assert.InDelta(t, 0.05, eng.OutcomeProbabilities()[0], 1e-12)
	_, err = eng.ForceRecall(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.05*1.1051709180756477, eng.OutcomeProbabilities()[0], 1e-12)
}

func TestBeginRecall_OpensWithoutRecalling(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(string(kind), func(t *testing.T) {
			viaFree := newEncodedEngine(t, kind, 3, scenarioParams())
			viaBegin := newEncodedEngine(t, kind, 3, scenarioParams())
			before := viaFree.Context()

			seq, err := viaFree.FreeRecall(0)
			require.NoError(t, err)
			assert.Empty(t, seq)
			assert.Equal(t, Retrieving, viaFree.State())
			assert.NotEqual(t, before, viaFree.Context(), "delay and start contexts are reinstated")

			seq, err = viaBegin.BeginRecall()
			require.NoError(t, err)
			assert.Empty(t, seq)
			assert.Equal(t, viaFree.Context(), viaBegin.Context())

			// a second open is a no-op
			ctx := viaBegin.Context()
			_, err = viaBegin.BeginRecall()
			require.NoError(t, err)
			assert.Equal(t, ctx, viaBegin.Context())
		})
	}
}

func TestForceRecall_StopRestoresContext(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(string(kind), func(t *testing.T) {
			eng := newEncodedEngine(t, kind, 3, scenarioParams())
			before := eng.Context()

			seq, err := eng.ForceRecall(2)
			require.NoError(t, err)
			assert.Equal(t, []int{1}, seq)

			seq, err = eng.ForceRecall(0)
			require.NoError(t, err)
			assert.Equal(t, []int{1}, seq)
			assert.Equal(t, Idle, eng.State())
			assert.Equal(t, before, eng.Context())

			// the next call opens a fresh episode
			seq, err = eng.ForceRecall(2)
			require.NoError(t, err)
			assert.Equal(t, []int{1}, seq)
		})
	}
}

func TestForceRecall_RejectsBadChoices(t *testing.T) {
	eng := newEncodedEngine(t, KindClassic, 3, scenarioParams())

	_, err := eng.ForceRecall(4)
	assert.True(t, errors.Is(err, ErrChoiceOutOfRange))
	assert.Equal(t, Idle, eng.State(), "rejected choice must not open an episode")

	_, err = eng.ForceRecall(1)
	require.NoError(t, err)
	ctx := eng.Context()

	seq, err := eng.ForceRecall(1)
	assert.True(t, errors.Is(err, ErrAlreadyRecalled))
	assert.Equal(t, []int{0}, seq)
	assert.Equal(t, ctx, eng.Context())

	seq, err = eng.ForceRecall(-3)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, seq)
	assert.Equal(t, Idle, eng.State())
}

func TestFreeRecall_AllItemsRecalled(t *testing.T) {
	eng := newEncodedEngine(t, KindInstance, 3, scenarioParams(), WithSeed(5))
	for _, c := range []int{3, 1, 2} {
		_, err := eng.ForceRecall(c)
		require.NoError(t, err)
	}
	ctx := eng.Context()

	seq, err := eng.FreeRecall(RecallAll)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, seq)
	assert.Equal(t, Retrieving, eng.State())
	assert.Equal(t, ctx, eng.Context())
}

func TestFreeRecall_ScriptedStop(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(string(kind), func(t *testing.T) {
			src := &scriptedSource{values: []float64{0}}
			eng := newEncodedEngine(t, kind, 3, scenarioParams(), WithRand(src))
			before := eng.Context()

			seq, err := eng.FreeRecall(RecallAll)
			require.NoError(t, err)
			assert.Empty(t, seq)
			assert.Equal(t, Idle, eng.State())
			assert.Equal(t, before, eng.Context())
			assert.Equal(t, 1, src.next)
		})
	}
}

func TestFreeRecall_StepLimit(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(string(kind), func(t *testing.T) {
			src := &scriptedSource{values: []float64{0.5}}
			eng := newEncodedEngine(t, kind, 4, scenarioParams(), WithRand(src))

			seq, err := eng.FreeRecall(1)
			require.NoError(t, err)
			require.Len(t, seq, 1)
			assert.Equal(t, Retrieving, eng.State())

			seq2, err := eng.FreeRecall(1)
			require.NoError(t, err)
			require.Len(t, seq2, 2)
			assert.Equal(t, seq[0], seq2[0], "recalls accumulate within an episode")
			assert.NotEqual(t, seq2[0], seq2[1])
		})
	}
}

func TestForceRecall_ReplaysFreeRecallTrajectory(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(string(kind), func(t *testing.T) {
			for seed := uint64(0); seed < 10; seed++ {
				free := newEncodedEngine(t, kind, 5, scenarioParams(), WithSeed(seed))
				forced := newEncodedEngine(t, kind, 5, scenarioParams())

				var contexts [][]float64
				stopped := false
				for step := 0; step < 5; step++ {
					_, err := free.FreeRecall(1)
					require.NoError(t, err)
					contexts = append(contexts, free.Context())
					if free.State() == Idle {
						stopped = true
						break
					}
				}

				seq := free.Recall()
				for i, item := range seq {
					_, err := forced.ForceRecall(item + 1)
					require.NoError(t, err)
					assert.InDeltaSlice(t, contexts[i], forced.Context(), 1e-12, "seed %d step %d", seed, i)
				}
				if stopped {
					_, err := forced.ForceRecall(0)
					require.NoError(t, err)
					assert.InDeltaSlice(t, contexts[len(contexts)-1], forced.Context(), 1e-12)
				}
				assert.Equal(t, seq, forced.Recall())
				assert.Equal(t, free.State(), forced.State())
			}
		})
	}
}

func TestFreeRecall_ReferenceScenarioIsReproducible(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(string(kind), func(t *testing.T) {
			first := newEncodedEngine(t, kind, 3, scenarioParams(), WithSeed(42))
			second := newEncodedEngine(t, kind, 3, scenarioParams(), WithSeed(42))

			a, err := first.FreeRecall(RecallAll)
			require.NoError(t, err)
			b, err := second.FreeRecall(RecallAll)
			require.NoError(t, err)

			assert.Equal(t, a, b)
			assert.LessOrEqual(t, len(a), 3)
			seen := map[int]bool{}
			for _, item := range a {
				assert.GreaterOrEqual(t, item, 0)
				assert.Less(t, item, 3)
				assert.False(t, seen[item], "item %d recalled twice", item)
				seen[item] = true
			}
		})
	}
}

func TestEngines_AreIndependent(t *testing.T) {
	a := newEncodedEngine(t, KindClassic, 4, scenarioParams(), WithSeed(1))
	b := newEncodedEngine(t, KindClassic, 4, scenarioParams(), WithSeed(1))

	_, err := a.ForceRecall(2)
	require.NoError(t, err)
	assert.Equal(t, Idle, b.State())
	assert.Empty(t, b.Recall())
	assert.NotEqual(t, a.Context(), b.Context())
}

func TestEngine_LogsDecisions(t *testing.T) {
	dir := t.TempDir()
	dl := logging.NewDecisionLogger(dir, "debug")
	require.NotNil(t, dl)

	var buf bytes.Buffer
	eng := newEncodedEngine(t, KindClassic, 3, scenarioParams(),
		WithRand(&scriptedSource{values: []float64{0}}),
		WithDecisionLogger(dl),
		WithLogger(logging.NewLogger("trace", "text", &buf)))

	_, err := eng.ForceRecall(2)
	require.NoError(t, err)
	_, err = eng.FreeRecall(RecallAll)
	require.NoError(t, err)
	dl.Close()

	data, err := os.ReadFile(filepath.Join(dir, "decisions.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var forced, sampled logging.Decision
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &forced))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &sampled))
	assert.True(t, forced.Forced)
	assert.Equal(t, 2, forced.Choice)
	assert.False(t, sampled.Forced)
	assert.Equal(t, 0, sampled.Choice)
	assert.Equal(t, 1, sampled.RecallTotal)
	assert.InDelta(t, 0.05*1.1051709180756477, sampled.StopProbability, 1e-12)

	assert.Contains(t, buf.String(), "recall episode opened")
	assert.Contains(t, buf.String(), "level=TRACE")
}
