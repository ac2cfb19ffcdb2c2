package rebuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySeverity_HalfOpenTiers(t *testing.T) {
	th := Thresholds{Stable: 5, Warning: 20}

	assert.Equal(t, SeverityStable, ClassifySeverity(0, th))
	assert.Equal(t, SeverityStable, ClassifySeverity(4, th))
	assert.Equal(t, SeverityMedium, ClassifySeverity(5, th))
	assert.Equal(t, SeverityMedium, ClassifySeverity(19, th))
	assert.Equal(t, SeverityHigh, ClassifySeverity(20, th))
	assert.Equal(t, SeverityHigh, ClassifySeverity(100000, th))
}

func TestClassifySeverity_Defaults(t *testing.T) {
	assert.Equal(t, SeverityStable, ClassifySeverity(19, DefaultThresholds))
	assert.Equal(t, SeverityMedium, ClassifySeverity(20, DefaultThresholds))
	assert.Equal(t, SeverityMedium, ClassifySeverity(49, DefaultThresholds))
	assert.Equal(t, SeverityHigh, ClassifySeverity(50, DefaultThresholds))
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "stable", SeverityStable.String())
	assert.Equal(t, "medium", SeverityMedium.String())
	assert.Equal(t, "high", SeverityHigh.String())
}
