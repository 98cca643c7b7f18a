package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveReconciliation(t *testing.T) {
	success := Reconciliations.WithLabelValues(KindUserWrite, "success")
	failure := Reconciliations.WithLabelValues(KindUserWrite, "error")
	beforeSuccess := testutil.ToFloat64(success)
	beforeFailure := testutil.ToFloat64(failure)

	ObserveReconciliation(KindUserWrite, nil)
	ObserveReconciliation(KindUserWrite, nil)
	ObserveReconciliation(KindUserWrite, errors.New("boom"))

	assert.Equal(t, beforeSuccess+2, testutil.ToFloat64(success))
	assert.Equal(t, beforeFailure+1, testutil.ToFloat64(failure))
}
