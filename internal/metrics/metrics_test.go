package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAddRows(t *testing.T) {
	c := metricsSingleton().rowsTotal.WithLabelValues("import", OutcomeInserted)
	before := testutil.ToFloat64(c)

	AddRows("import", OutcomeInserted, 3)
	AddRows("import", OutcomeInserted, 0)

	assert.Equal(t, before+3, testutil.ToFloat64(c))
}

func TestObservePass(t *testing.T) {
	ok := metricsSingleton().passTotal.WithLabelValues("responden", "success")
	failed := metricsSingleton().passTotal.WithLabelValues("responden", "failure")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObservePass("responden", time.Now(), nil)
	ObservePass("responden", time.Now(), errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestResolverFallback(t *testing.T) {
	c := metricsSingleton().resolverFallbacks.WithLabelValues("faculty")
	before := testutil.ToFloat64(c)
	ResolverFallback("faculty")
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
