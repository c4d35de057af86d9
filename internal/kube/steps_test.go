package kube

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"specrun/internal/engine"
	"specrun/internal/gherkin"
	"specrun/internal/stepdef"
)

func TestKubernetesStepsEndToEnd(t *testing.T) {
	feature, err := gherkin.Parse("settings.feature", []byte(`
Feature: Cluster settings

  Scenario: Seed and update a config map
    Given a config map named "settings"
      | log_level | info |
    When I set "log_level" to "debug" in config map "settings"
    Then config map "settings" has "log_level" set to "debug"
    And the namespace holds 1 config map

  Scenario: Same name, different namespace
    Given a config map named "settings"
    Then the namespace holds 1 config map

  Scenario: Deleting empties the namespace
    Given a config map named "settings"
    When I delete config map "settings"
    Then the namespace holds 0 config maps
`))
	require.NoError(t, err)

	b := stepdef.NewBuilder()
	RegisterSteps(b)
	reg, err := b.Build()
	require.NoError(t, err)

	clientset := fake.NewSimpleClientset()
	r, err := engine.NewRunner(reg, NewWorldFactory(clientset, "spectest"), nil, engine.RunConfig{})
	require.NoError(t, err)
	summary, err := r.Run(context.Background(), []*gherkin.Feature{feature})
	require.NoError(t, err)

	assert.False(t, summary.Failing(), "run failed: %+v", summary)
	assert.Equal(t, 3, summary.Scenarios.Passed)

	// Every scenario's namespace is gone once its scenario finished.
	namespaces, err := clientset.CoreV1().Namespaces().List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, namespaces.Items)
}

func TestStepsRequireKubeWorld(t *testing.T) {
	sc := &stepdef.StepContext{World: map[string]interface{}{}, Args: []string{"settings"}}
	err := createConfigMap(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kube.World")
}

func TestAssertConfigMapKeyMismatch(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	f := NewWorldFactory(clientset, "spectest")
	world, err := f.Setup(context.Background(), &stepdef.ScenarioContext{Name: "one"})
	require.NoError(t, err)
	w := world.(*World)

	require.NoError(t, createConfigMap(context.Background(), &stepdef.StepContext{
		World: w,
		Args:  []string{"settings"},
		Table: &gherkin.DataTable{Rows: [][]string{{"log_level", "info"}}},
	}))

	err = assertConfigMapKey(context.Background(), &stepdef.StepContext{
		World: w,
		Args:  []string{"settings", "log_level", "debug"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `is "info", want "debug"`)
}

func TestCreateConfigMapRejectsRaggedTable(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	f := NewWorldFactory(clientset, "spectest")
	world, err := f.Setup(context.Background(), &stepdef.ScenarioContext{Name: "one"})
	require.NoError(t, err)

	err = createConfigMap(context.Background(), &stepdef.StepContext{
		World: world,
		Args:  []string{"settings"},
		Table: &gherkin.DataTable{Rows: [][]string{{"only-one-cell"}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need 2 cells")
}
