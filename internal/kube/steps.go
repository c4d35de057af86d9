package kube

import (
	"context"
	"fmt"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"specrun/internal/stepdef"
)

// RegisterSteps adds the Kubernetes step library to b. The steps require the
// World produced by this package's WorldFactory; under another factory they
// fail with a type error naming what they got.
func RegisterSteps(b *stepdef.Builder) {
	b.Given(`a config map named "([^"]+)"`, createConfigMap)
	b.When(`I set "([^"]+)" to "([^"]+)" in config map "([^"]+)"`, setConfigMapKey)
	b.When(`I delete config map "([^"]+)"`, deleteConfigMap)
	b.Then(`config map "([^"]+)" has "([^"]+)" set to "([^"]+)"`, assertConfigMapKey)
	b.Then(`the namespace holds (\d+) config maps?`, assertConfigMapCount)
}

func worldFrom(sc *stepdef.StepContext) (*World, error) {
	w, ok := sc.World.(*World)
	if !ok {
		return nil, fmt.Errorf("kubernetes steps need a kube.World, got %T", sc.World)
	}
	return w, nil
}

// createConfigMap creates a config map in the scenario's namespace, seeded
// from the step's data table (one key/value pair per row) when present.
func createConfigMap(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldFrom(sc)
	if err != nil {
		return err
	}
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: sc.Args[0], Namespace: w.Namespace},
		Data:       map[string]string{},
	}
	if sc.Table != nil {
		for _, row := range sc.Table.Rows {
			if len(row) != 2 {
				return fmt.Errorf("config map table rows need 2 cells, got %d", len(row))
			}
			cm.Data[row[0]] = row[1]
		}
	}
	if _, err := w.Client.CoreV1().ConfigMaps(w.Namespace).Create(ctx, cm, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create config map %s: %w", sc.Args[0], err)
	}
	return nil
}

func setConfigMapKey(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldFrom(sc)
	if err != nil {
		return err
	}
	key, value, name := sc.Args[0], sc.Args[1], sc.Args[2]
	cm, err := w.Client.CoreV1().ConfigMaps(w.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get config map %s: %w", name, err)
	}
	if cm.Data == nil {
		cm.Data = map[string]string{}
	}
	cm.Data[key] = value
	if _, err := w.Client.CoreV1().ConfigMaps(w.Namespace).Update(ctx, cm, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to update config map %s: %w", name, err)
	}
	return nil
}

func deleteConfigMap(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldFrom(sc)
	if err != nil {
		return err
	}
	if err := w.Client.CoreV1().ConfigMaps(w.Namespace).Delete(ctx, sc.Args[0], metav1.DeleteOptions{}); err != nil {
		return fmt.Errorf("failed to delete config map %s: %w", sc.Args[0], err)
	}
	return nil
}

func assertConfigMapKey(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldFrom(sc)
	if err != nil {
		return err
	}
	name, key, want := sc.Args[0], sc.Args[1], sc.Args[2]
	cm, err := w.Client.CoreV1().ConfigMaps(w.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get config map %s: %w", name, err)
	}
	if got := cm.Data[key]; got != want {
		return fmt.Errorf("config map %s: %s is %q, want %q", name, key, got, want)
	}
	return nil
}

func assertConfigMapCount(ctx context.Context, sc *stepdef.StepContext) error {
	w, err := worldFrom(sc)
	if err != nil {
		return err
	}
	want, err := strconv.Atoi(sc.Args[0])
	if err != nil {
		return err
	}
	list, err := w.Client.CoreV1().ConfigMaps(w.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list config maps: %w", err)
	}
	if len(list.Items) != want {
		return fmt.Errorf("namespace %s holds %d config maps, want %d", w.Namespace, len(list.Items), want)
	}
	return nil
}
