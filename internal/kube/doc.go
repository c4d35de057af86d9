// Package kube backs scenarios with a real Kubernetes cluster: the
// WorldFactory provisions one ephemeral, uniquely named namespace per
// scenario and deletes it when the scenario ends, and RegisterSteps adds a
// step library operating inside that namespace. Scenario isolation falls out
// of namespace isolation; the clientset itself is shared and read-only
// configured.
package kube
