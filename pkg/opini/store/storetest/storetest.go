// Package storetest holds the behaviour every store.Store implementation
// must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cognicore/opini/pkg/opini/internalerr"
	"github.com/cognicore/opini/pkg/opini/label"
	"github.com/cognicore/opini/pkg/opini/store"
)

// Fixture returns the results used by Run, deliberately out of order.
func Fixture() []store.Result {
	wib := time.FixedZone("WIB", 7*3600)
	return []store.Result{
		{Seq: 3, ID: "d", Content: "Bendera jelek", CleanText: "bendera jelek", RawLabel: "negative",
			Sentiment: label.Negatif, Status: store.StatusOK, Date: time.Date(2024, 8, 17, 9, 0, 0, 0, wib)},
		{Seq: 0, ID: "a", User: "budi", Content: "Bendera keren!", CleanText: "bendera keren", RawLabel: "positive",
			Sentiment: label.Positif, Status: store.StatusOK, Date: time.Date(2024, 8, 16, 23, 30, 0, 0, wib)},
		{Seq: 1, ID: "b", Content: "Hari ini cerah", CleanText: "hari ini cerah", RawLabel: "positive",
			Sentiment: label.Positif, Status: store.StatusOK},
		{Seq: 2, ID: "c", Content: "???", CleanText: "", RawLabel: "LABEL_9",
			Status: store.StatusError, Error: "unmapped label"},
		{Seq: 4, ID: "e", Content: "Dirgahayu ke-79 🇮🇩", CleanText: "dirgahayu ke", RawLabel: "positive",
			Sentiment: label.Positif, Status: store.StatusOK, Date: time.Date(2024, 8, 17, 20, 0, 0, 0, wib)},
	}
}

// Run exercises a fresh store returned by open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("ResultsInInputOrder", func(t *testing.T) {
		ctx := context.Background()
		st := load(t, open)

		results, err := st.Results(ctx)
		require.NoError(t, err)
		require.Len(t, results, 5)
		for i, r := range results {
			require.Equal(t, i, r.Seq)
		}
		require.Equal(t, "budi", results[0].User)
		require.Equal(t, "Dirgahayu ke-79 🇮🇩", results[4].Content)
		require.True(t, results[0].Date.Equal(Fixture()[1].Date))
		require.True(t, results[1].Date.IsZero())
		require.Equal(t, store.StatusError, results[2].Status)
		require.Equal(t, "unmapped label", results[2].Error)
		require.Equal(t, label.Sentiment(""), results[2].Sentiment)
	})

	t.Run("PutResultReplaces", func(t *testing.T) {
		ctx := context.Background()
		st := load(t, open)

		fixed := Fixture()[3]
		fixed.Status = store.StatusOK
		fixed.Sentiment = label.Netral
		fixed.Error = ""
		require.NoError(t, st.PutResult(ctx, fixed))

		results, err := st.Results(ctx)
		require.NoError(t, err)
		require.Len(t, results, 5)
		require.Equal(t, label.Netral, results[2].Sentiment)
	})

	t.Run("TextsByLabel", func(t *testing.T) {
		ctx := context.Background()
		st := load(t, open)

		pos, err := st.TextsByLabel(ctx, label.Positif)
		require.NoError(t, err)
		require.Equal(t, []string{"bendera keren", "hari ini cerah", "dirgahayu ke"}, pos)

		neu, err := st.TextsByLabel(ctx, label.Netral)
		require.NoError(t, err)
		require.Empty(t, neu)
	})

	t.Run("DistributionSkipsErrors", func(t *testing.T) {
		st := load(t, open)
		dist, err := st.Distribution(context.Background())
		require.NoError(t, err)
		require.Equal(t, map[label.Sentiment]int{
			label.Positif: 3,
			label.Negatif: 1,
			label.Netral:  0,
		}, dist)
	})

	t.Run("DailyCountsZeroFilled", func(t *testing.T) {
		st := load(t, open)
		daily, err := st.DailyCounts(context.Background())
		require.NoError(t, err)
		require.Equal(t, []store.DailyCount{
			{Day: "2024-08-16", Counts: map[label.Sentiment]int{label.Positif: 1, label.Negatif: 0, label.Netral: 0}},
			{Day: "2024-08-17", Counts: map[label.Sentiment]int{label.Positif: 1, label.Negatif: 1, label.Netral: 0}},
		}, daily)
	})

	t.Run("Empty", func(t *testing.T) {
		st := open(t)
		t.Cleanup(func() { st.Close() })
		ctx := context.Background()

		results, err := st.Results(ctx)
		require.NoError(t, err)
		require.Empty(t, results)

		dist, err := st.Distribution(ctx)
		require.NoError(t, err)
		require.Len(t, dist, 3)

		daily, err := st.DailyCounts(ctx)
		require.NoError(t, err)
		require.Empty(t, daily)
	})

	t.Run("Closed", func(t *testing.T) {
		st := open(t)
		require.NoError(t, st.Close())
		err := st.PutResult(context.Background(), Fixture()[0])
		require.Error(t, err)
		require.True(t, errors.Is(err, internalerr.ErrStoreClosed), "got %v", err)
	})
}

func load(t *testing.T, open func(t *testing.T) store.Store) store.Store {
	t.Helper()
	st := open(t)
	t.Cleanup(func() { st.Close() })
	for _, r := range Fixture() {
		require.NoError(t, st.PutResult(context.Background(), r))
	}
	return st
}
