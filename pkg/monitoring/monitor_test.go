package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveGrading(t *testing.T) {
	before := testutil.ToFloat64(SubmissionCounter.WithLabelValues("quiz", "ALREADY_SUBMITTED"))

	ObserveGrading("quiz", "submit_quiz", "ALREADY_SUBMITTED", time.Now().Add(-20*time.Millisecond))

	assert.Equal(t, before+1, testutil.ToFloat64(SubmissionCounter.WithLabelValues("quiz", "ALREADY_SUBMITTED")))
	assert.Equal(t, 1, testutil.CollectAndCount(GradingDuration, "grading_duration_seconds"))
}
