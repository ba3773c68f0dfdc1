package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// safe to call before Init
	ObserveRun(nil, time.Second)
	IncEmission("house", nil)

	Init(prometheus.NewRegistry())

	ObserveRun(nil, time.Second)
	ObserveRun(errors.New("fail"), time.Second)
	ObserveRun(errors.New("fail"), time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(runsTotal.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(runsTotal.WithLabelValues(ResultError)))

	ObserveFetch("solaredge", nil, time.Millisecond)
	ObserveFetch("", errors.New("fail"), time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(fetchTotal.WithLabelValues("solaredge", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(fetchTotal.WithLabelValues("unknown", ResultError)))

	IncEmission("solar", errors.New("fail"))
	assert.Equal(t, 1.0, testutil.ToFloat64(emitTotal.WithLabelValues("solar", ResultError)))

	SetCumulative("house", "main", 102)
	assert.Equal(t, 102.0, testutil.ToFloat64(cumulative.WithLabelValues("house", "main")))
}
