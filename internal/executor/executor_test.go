package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/blobtypes"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/cancel"
	blobErrors "github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/notify"
)

func makeJobs(n int) []*blobtypes.UploadJob {
	jobs := make([]*blobtypes.UploadJob, n)
	for i := range jobs {
		name := fmt.Sprintf("f%02d.txt", i)
		payload := []byte(name)
		jobs[i] = &blobtypes.UploadJob{
			Index:    i,
			FileName: name,
			BlobName: "backup/" + name,
			Payload:  payload,
			Size:     int64(len(payload)),
		}
	}
	return jobs
}

func assertAccounted(t *testing.T, r *Result) {
	t.Helper()
	assert.Equal(t, r.Total, r.Uploaded+len(r.Failed)+r.Skipped)
}

func TestExecute_AllSucceed(t *testing.T) {
	const n, limit = 20, 3

	store := &testutil.MockBlobStore{
		StoreFunc: func(context.Context, string, string, []byte) error {
			time.Sleep(5 * time.Millisecond)
			return nil
		},
	}
	sink := &testutil.RecordingSink{}

	result, err := NewExecutor(store, sink, cancel.New(), limit).Execute(context.Background(), "c1", makeJobs(n))
	require.NoError(t, err)

	assert.Equal(t, n, result.Total)
	assert.Equal(t, n, result.Uploaded)
	assert.Empty(t, result.Failed)
	assert.Zero(t, result.Skipped)
	assert.False(t, result.Cancelled)
	assertAccounted(t, result)

	assert.LessOrEqual(t, store.MaxInFlight(), limit)
	assert.Equal(t, n, store.CallCount())
	for _, c := range store.Calls() {
		assert.Equal(t, "c1", c.Container)
	}

	want := make([]float64, n)
	for i := range want {
		want[i] = float64(i+1) / float64(n) * 100
	}
	got := sink.ProgressValues()
	sort.Float64s(got)
	assert.Equal(t, want, got)
	assert.Equal(t, 100.0, got[n-1])
	assert.Empty(t, sink.Infos())
}

func TestExecute_FailureIsIsolated(t *testing.T) {
	jobs := makeJobs(4)
	store := &testutil.MockBlobStore{
		StoreFunc: testutil.ErrorOnBlob("backup/f02.txt", errors.New("network down")),
	}
	sink := &testutil.RecordingSink{}

	result, err := NewExecutor(store, sink, cancel.New(), 2).Execute(context.Background(), "c1", jobs)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Uploaded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 2, result.Failed[0].Index)
	assert.Equal(t, "f02.txt", result.Failed[0].FileName)
	assert.EqualError(t, result.Failed[0].Err, "network down")
	assertAccounted(t, result)

	assert.Equal(t, []string{"failed to upload file f02.txt: network down"}, sink.Errors())
	got := sink.ProgressValues()
	sort.Float64s(got)
	assert.Equal(t, []float64{25, 50, 100}, got)
}

func TestExecute_FailuresOrderedByIndex(t *testing.T) {
	store := &testutil.MockBlobStore{StoreFunc: testutil.ErrorAlways(errors.New("denied"))}

	result, err := NewExecutor(store, notify.Discard, cancel.New(), 5).Execute(context.Background(), "c1", makeJobs(10))
	require.NoError(t, err)

	require.Len(t, result.Failed, 10)
	for i, f := range result.Failed {
		assert.Equal(t, i, f.Index)
	}
}

func TestExecute_NoJobs(t *testing.T) {
	store := &testutil.MockBlobStore{}
	sink := &testutil.RecordingSink{}

	result, err := NewExecutor(store, sink, cancel.New(), 2).Execute(context.Background(), "c1", nil)
	require.NoError(t, err)

	assert.Zero(t, result.Total)
	assert.Zero(t, result.Uploaded)
	assert.Equal(t, []notify.Event{{Kind: notify.KindInfo, Message: notify.MsgNoFiles}}, sink.Events())
	assert.Zero(t, store.CallCount())
}

func TestExecute_CancelledBeforeStart(t *testing.T) {
	token := cancel.New()
	token.Cancel()

	store := &testutil.MockBlobStore{}
	sink := &testutil.RecordingSink{}

	result, err := NewExecutor(store, sink, token, 4).Execute(context.Background(), "c1", makeJobs(8))
	require.NoError(t, err)

	assert.Zero(t, store.CallCount())
	assert.True(t, result.Cancelled)
	assert.Equal(t, 8, result.Skipped)
	assertAccounted(t, result)
	assert.Equal(t, 1, sink.CountInfo(notify.MsgCancelled))
	assert.Empty(t, sink.ProgressValues())
}

func TestExecute_CancelledMidRun(t *testing.T) {
	const n, limit, k = 30, 3, 5

	token := cancel.New()
	var calls atomic.Int64
	store := &testutil.MockBlobStore{
		StoreFunc: func(context.Context, string, string, []byte) error {
			if calls.Add(1) == k {
				token.Cancel()
			}
			time.Sleep(2 * time.Millisecond)
			return nil
		},
	}
	sink := &testutil.RecordingSink{}

	result, err := NewExecutor(store, sink, token, limit).Execute(context.Background(), "c1", makeJobs(n))
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.LessOrEqual(t, store.CallCount(), k+limit)
	assert.GreaterOrEqual(t, store.CallCount(), k)
	assert.Positive(t, result.Skipped)
	assertAccounted(t, result)
	assert.Equal(t, 1, sink.CountInfo(notify.MsgCancelled))
	assert.Len(t, sink.ProgressValues(), result.Uploaded)
}

func TestExecute_CancelledWhileWaitingForSlot(t *testing.T) {
	token := cancel.New()
	started := make(chan struct{})
	release := make(chan struct{})

	store := &testutil.MockBlobStore{
		StoreFunc: func(_ context.Context, _, name string, _ []byte) error {
			if name == "backup/f00.txt" {
				close(started)
				<-release
			}
			return nil
		},
	}
	sink := &testutil.RecordingSink{}
	exec := NewExecutor(store, sink, token, 1)

	done := make(chan *Result)
	go func() {
		result, err := exec.Execute(context.Background(), "c1", makeJobs(3))
		assert.NoError(t, err)
		done <- result
	}()

	<-started
	token.Cancel()
	close(release)
	result := <-done

	assert.Equal(t, 1, store.CallCount())
	assert.Equal(t, 1, result.Uploaded)
	assert.Equal(t, 2, result.Skipped)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, sink.CountInfo(notify.MsgCancelled))
}

func TestExecute_ContextCancelled(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	started := make(chan struct{}, 1)

	store := &testutil.MockBlobStore{
		StoreFunc: func(ctx context.Context, _, _ string, _ []byte) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-ctx.Done()
			return ctx.Err()
		},
	}
	sink := &testutil.RecordingSink{}

	go func() {
		<-started
		cancelCtx()
	}()

	result, err := NewExecutor(store, sink, cancel.New(), 1).Execute(ctx, "c1", makeJobs(5))
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.GreaterOrEqual(t, result.Skipped, 3)
	assertAccounted(t, result)
	for _, f := range result.Failed {
		assert.ErrorIs(t, f.Err, context.Canceled)
	}
}

func TestExecute_PanicBecomesRunError(t *testing.T) {
	store := &testutil.MockBlobStore{
		StoreFunc: func(_ context.Context, _, name string, _ []byte) error {
			if name == "backup/f01.txt" {
				panic("driver bug")
			}
			return nil
		},
	}

	exec := NewExecutor(store, notify.Discard, cancel.New(), 2)
	result, err := exec.Execute(context.Background(), "c1", makeJobs(3))

	require.Error(t, err)
	assert.ErrorIs(t, err, blobErrors.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "driver bug")
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)
	assert.Equal(t, 2, result.Uploaded)
	assertAccounted(t, result)
	assert.Zero(t, exec.GetStats().CurrentConcurrency)
}

func TestExecute_ReleasesJobReferences(t *testing.T) {
	jobs := makeJobs(4)

	_, err := NewExecutor(&testutil.MockBlobStore{}, notify.Discard, cancel.New(), 2).
		Execute(context.Background(), "c1", jobs)
	require.NoError(t, err)

	for _, j := range jobs {
		assert.Nil(t, j)
	}
}

func TestExecutorGetStats(t *testing.T) {
	exec := NewExecutor(&testutil.MockBlobStore{}, notify.Discard, nil, 5)

	stats := exec.GetStats()
	assert.Equal(t, 5, stats.MaxConcurrency)
	assert.Zero(t, stats.CurrentConcurrency)
	assert.Equal(t, 5, stats.AvailableSlots)
	assert.Zero(t, stats.PeakConcurrency)

	assert.Equal(t, blobtypes.DefaultConcurrency, NewExecutor(nil, notify.Discard, nil, 0).GetStats().MaxConcurrency)
}

func TestExecute_ReportsPeakConcurrency(t *testing.T) {
	store := &testutil.MockBlobStore{
		StoreFunc: func(context.Context, string, string, []byte) error {
			time.Sleep(2 * time.Millisecond)
			return nil
		},
	}

	exec := NewExecutor(store, notify.Discard, cancel.New(), 3)
	result, err := exec.Execute(context.Background(), "c1", makeJobs(12))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.PeakConcurrency, 1)
	assert.LessOrEqual(t, result.PeakConcurrency, 3)
	assert.GreaterOrEqual(t, result.PeakConcurrency, store.MaxInFlight())

	stats := exec.GetStats()
	assert.Equal(t, result.PeakConcurrency, stats.PeakConcurrency)
	assert.Zero(t, stats.CurrentConcurrency)
	assert.Equal(t, 3, stats.AvailableSlots)
}
