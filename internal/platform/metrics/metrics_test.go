package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoop(t *testing.T) {
	var m Noop
	m.IncWrite("set", "clinic")
	m.IncResolution("default")
	m.ObserveResolve(0.01)
	m.IncValidationIssue("MissingRequiredValue")
}

func TestProm(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewProm("hierconf", reg)

	m.IncWrite("set", "location")
	m.IncWrite("set", "location")
	m.IncWrite("delete", "program")
	m.IncResolution("clinic")
	m.ObserveResolve(0.002)
	m.IncValidationIssue("StaleInvalidValue")

	families, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(families, "hierconf_value_writes_total",
		map[string]string{"operation": "set", "level": "location"}))
	assert.Equal(t, 1.0, counterValue(families, "hierconf_value_writes_total",
		map[string]string{"operation": "delete", "level": "program"}))
	assert.Equal(t, 1.0, counterValue(families, "hierconf_resolutions_total",
		map[string]string{"level": "clinic"}))
	assert.Equal(t, 1.0, counterValue(families, "hierconf_validation_issues_total",
		map[string]string{"kind": "StaleInvalidValue"}))
	assert.True(t, hasFamily(families, "hierconf_resolve_duration_seconds"))
}

func TestProm_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewProm("hierconf", reg)
	assert.Panics(t, func() { NewProm("hierconf", reg) })
}

func TestProm_WriteToTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewProm("hierconf", reg)
	m.IncResolution("program")

	path := filepath.Join(t.TempDir(), "hierconf.prom")
	require.NoError(t, prometheus.WriteToTextfile(path, reg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `hierconf_resolutions_total{level="program"} 1`)
}

func hasFamily(families []*dto.MetricFamily, name string) bool {
	for _, fam := range families {
		if fam.GetName() == name {
			return true
		}
	}
	return false
}

func counterValue(families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if matchLabels(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return -1
}

func matchLabels(pairs []*dto.LabelPair, labels map[string]string) bool {
	found := 0
	for _, pair := range pairs {
		if val, ok := labels[pair.GetName()]; ok && pair.GetValue() == val {
			found++
		}
	}
	return found == len(labels)
}
