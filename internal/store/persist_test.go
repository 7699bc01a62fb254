package store

import (
	"context"
	"errors"
	"testing"

	"fastestcars/internal/cars"
	"fastestcars/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeInserter struct {
	calls  [][]cars.Record
	failOn map[int]error
}

func (f *fakeInserter) InsertBatch(ctx context.Context, records []cars.Record) error {
	f.calls = append(f.calls, records)
	return f.failOn[len(f.calls)]
}

func makeRecords(n int) []cars.Record {
	records := make([]cars.Record, n)
	for i := range records {
		records[i] = cars.Record{Year: cars.Int64(int64(1900 + i%100))}
	}
	return records
}

func sizes(calls [][]cars.Record) []int {
	out := make([]int, len(calls))
	for i, c := range calls {
		out[i] = len(c)
	}
	return out
}

func TestPersistBatching(t *testing.T) {
	testCases := []struct {
		name      string
		records   int
		batchSize int
		expect    []int
	}{
		{name: "empty", records: 0, batchSize: 500, expect: []int{}},
		{name: "single partial", records: 3, batchSize: 500, expect: []int{3}},
		{name: "exact multiple", records: 1000, batchSize: 500, expect: []int{500, 500}},
		{name: "remainder", records: 1200, batchSize: 500, expect: []int{500, 500, 200}},
		{name: "batch of one", records: 3, batchSize: 1, expect: []int{1, 1, 1}},
		{name: "default size", records: 501, batchSize: 0, expect: []int{500, 1}},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			ins := &fakeInserter{}
			records := makeRecords(test.records)
			report := Persist(context.Background(), ins, records, test.batchSize, &telemetry.RecordingAPI{})

			if diff := cmp.Diff(test.expect, sizes(ins.calls)); diff != "" {
				t.Fatal(diff)
			}
			require.Equal(t, test.records, report.Inserted)
			require.Equal(t, 0, report.Failed)
			require.NoError(t, report.Err())

			// chunks are contiguous and in order
			var joined []cars.Record
			for _, c := range ins.calls {
				joined = append(joined, c...)
			}
			require.Equal(t, len(records), len(joined))
			for i := range joined {
				require.Same(t, records[i].Year, joined[i].Year)
			}
		})
	}
}

func TestPersistContinuesAfterFailure(t *testing.T) {
	boom := errors.New("connection reset")
	ins := &fakeInserter{failOn: map[int]error{2: boom}}
	tel := &telemetry.RecordingAPI{}

	report := Persist(context.Background(), ins, makeRecords(1200), 500, tel)

	require.Len(t, ins.calls, 3, "batches after the failed one should still be attempted")
	expected := []BatchResult{
		{Index: 1, Size: 500},
		{Index: 2, Size: 500, Err: boom},
		{Index: 3, Size: 200},
	}
	if diff := cmp.Diff(expected, report.Batches, cmp.Comparer(func(a, b error) bool { return a == b })); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, 700, report.Inserted)
	require.Equal(t, 500, report.Failed)
	require.ErrorIs(t, report.Err(), boom)
	require.True(t, tel.Has("broken", report_persister_batch))
}
