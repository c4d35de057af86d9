package kube

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"specrun/internal/stepdef"
	"specrun/pkg/logging"
)

const subsystem = "Kube"

// managedByLabel marks namespaces created by the factory, so leftovers from
// a crashed run are easy to find and sweep.
const managedByLabel = "app.kubernetes.io/managed-by"

// Scenario provenance goes into annotations rather than labels because
// scenario names are free text.
const (
	scenarioAnnotation = "specrun.io/scenario"
	featureAnnotation  = "specrun.io/feature"
)

// World is the state Kubernetes-backed steps operate on: the shared
// clientset, the scenario's private namespace, and a scratch map for values
// steps pass to each other.
type World struct {
	Client    kubernetes.Interface
	Namespace string
	Values    map[string]interface{}
}

// WorldFactory provisions one namespace per scenario, named
// "<prefix>-<uuid>", and deletes it on dispose. The clientset is shared
// across scenarios; the namespaces are not.
type WorldFactory struct {
	client kubernetes.Interface
	prefix string
}

// NewWorldFactory returns a factory creating namespaces on the cluster the
// given clientset points at. An empty prefix defaults to "specrun".
func NewWorldFactory(client kubernetes.Interface, prefix string) *WorldFactory {
	if prefix == "" {
		prefix = "specrun"
	}
	return &WorldFactory{client: client, prefix: prefix}
}

// Setup creates the scenario's namespace and returns the World bound to it.
func (f *WorldFactory) Setup(ctx context.Context, sc *stepdef.ScenarioContext) (interface{}, error) {
	name := fmt.Sprintf("%s-%s", f.prefix, uuid.NewString())
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{managedByLabel: "specrun"},
			Annotations: map[string]string{
				scenarioAnnotation: sc.Name,
				featureAnnotation:  sc.FeaturePath,
			},
		},
	}
	if _, err := f.client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil {
		return nil, fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	logging.Debug(subsystem, "Created namespace %s for scenario %q", name, sc.Name)
	return &World{Client: f.client, Namespace: name, Values: map[string]interface{}{}}, nil
}

// Dispose deletes the scenario's namespace. A namespace that is already gone
// is not an error.
func (f *WorldFactory) Dispose(ctx context.Context, world interface{}) error {
	w, ok := world.(*World)
	if !ok {
		return fmt.Errorf("dispose called with %T, want *kube.World", world)
	}
	err := f.client.CoreV1().Namespaces().Delete(ctx, w.Namespace, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", w.Namespace, err)
	}
	logging.Debug(subsystem, "Deleted namespace %s", w.Namespace)
	return nil
}
