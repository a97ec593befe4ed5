package utils

import (
	"context"
	"testing"

	"go.uber.org/atomic"
	"go.viam.com/test"
)

func TestRollingWindow(t *testing.T) {
	rw := NewRollingWindow(3)
	test.That(t, rw.NumSamples(), test.ShouldEqual, 3)
	test.That(t, rw.Len(), test.ShouldEqual, 0)

	summary, err := rw.Summarize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary, test.ShouldResemble, Summary{})

	rw.Add(4)
	summary, err = rw.Summarize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary, test.ShouldResemble, Summary{Count: 1, Mean: 4, P50: 4, P95: 4, Max: 4})

	rw.Add(1)
	rw.Add(7)
	rw.Add(10)
	test.That(t, rw.Len(), test.ShouldEqual, 3)
	test.That(t, []float64(rw.Values()), test.ShouldResemble, []float64{1, 7, 10})

	summary, err = rw.Summarize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, summary.Count, test.ShouldEqual, 3)
	test.That(t, summary.Mean, test.ShouldEqual, 6.0)
	test.That(t, summary.P50, test.ShouldEqual, 7.0)
	test.That(t, summary.P95, test.ShouldEqual, 10.0)
	test.That(t, summary.Max, test.ShouldEqual, 10.0)
}

func TestNewUnexpectedTypeError(t *testing.T) {
	for _, tc := range []struct {
		expected interface{}
		actual   interface{}
		errStr   string
	}{
		{"exp1", 1, `expected string but got int`},
		{8, "actual2", `expected int but got string`},
		{map[string]interface{}{}, 2.0, `expected map[string]interface {} but got float64`},
	} {
		err := NewUnexpectedTypeError(tc.expected, tc.actual)
		test.That(t, err.Error(), test.ShouldEqual, tc.errStr)
	}
	test.That(t, NewUnknownCommandError("spin").Error(), test.ShouldEqual, `unknown command "spin"`)
}

func TestStoppableWorkers(t *testing.T) {
	var stopped atomic.Int32
	worker := func(ctx context.Context) {
		<-ctx.Done()
		stopped.Inc()
	}

	sw := NewStoppableWorkers(context.Background(), worker, worker)
	sw.AddWorkers(worker)
	test.That(t, sw.Context().Err(), test.ShouldBeNil)
	sw.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(3))
	test.That(t, sw.Context().Err(), test.ShouldNotBeNil)

	// no-op once stopped
	sw.AddWorkers(worker)
	sw.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(3))

	t.Run("parent cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		sw := NewStoppableWorkers(ctx, worker)
		cancel()
		<-sw.Context().Done()
		sw.Stop()
		test.That(t, stopped.Load(), test.ShouldEqual, int32(4))
	})
}
