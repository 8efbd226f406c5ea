package introspect

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/AdamKaabyia/oc-mcp/pkg/k8s"
)

func TestAssessHealthHealthy(t *testing.T) {
	ns := "nvidia-gpu-operator"
	client := fakeCluster(t,
		[]runtime.Object{
			namedPod(ns, "nvidia-driver-daemonset-1", corev1.PodRunning),
			namedPod(ns, "nvidia-device-plugin-1", corev1.PodRunning),
			namedPod(ns, "nvidia-dcgm-exporter-1", corev1.PodRunning),
			namedPod(ns, "nvidia-container-toolkit-1", corev1.PodRunning),
		},
		[]runtime.Object{
			csvObj(ns, "gpu-operator-certified.v24.9.0", "Succeeded"),
		},
	)

	snapshot, err := NewHealth(client).AssessHealth(context.Background(), GPUTaxonomy, ns)
	if err != nil {
		t.Fatalf("AssessHealth: %v", err)
	}
	if !snapshot.OperatorInstalled || !snapshot.OperatorHealthy {
		t.Errorf("expected installed healthy operator, got %+v", snapshot)
	}
	if snapshot.PodsRunning != 4 || snapshot.PodsTotal != 4 {
		t.Errorf("unexpected pod counts: %d/%d", snapshot.PodsRunning, snapshot.PodsTotal)
	}
	if snapshot.HealthStatus != HealthHealthy {
		t.Errorf("expected healthy, got %q", snapshot.HealthStatus)
	}
	if snapshot.Diagnostics["nvidia-driver"] != "running" {
		t.Errorf("expected driver diagnostic running, got %v", snapshot.Diagnostics)
	}
}

func TestAssessHealthDegradedOperatorPhase(t *testing.T) {
	ns := "nvidia-gpu-operator"
	client := fakeCluster(t,
		[]runtime.Object{
			namedPod(ns, "nvidia-driver-daemonset-1", corev1.PodRunning),
		},
		[]runtime.Object{
			csvObj(ns, "gpu-operator-certified.v24.9.0", "Failed"),
		},
	)

	snapshot, err := NewHealth(client).AssessHealth(context.Background(), GPUTaxonomy, ns)
	if err != nil {
		t.Fatalf("AssessHealth: %v", err)
	}
	if snapshot.OperatorHealthy {
		t.Error("operator in phase Failed must not report healthy")
	}
	if snapshot.HealthStatus != HealthDegraded {
		t.Errorf("expected degraded, got %q", snapshot.HealthStatus)
	}
}

func TestAssessHealthDegradedProblemPods(t *testing.T) {
	ns := "nvidia-gpu-operator"
	client := fakeCluster(t,
		[]runtime.Object{
			namedPod(ns, "nvidia-driver-daemonset-1", corev1.PodPending),
		},
		[]runtime.Object{
			csvObj(ns, "gpu-operator-certified.v24.9.0", "Succeeded"),
		},
	)

	snapshot, err := NewHealth(client).AssessHealth(context.Background(), GPUTaxonomy, ns)
	if err != nil {
		t.Fatalf("AssessHealth: %v", err)
	}
	if len(snapshot.ProblemPods) != 1 {
		t.Fatalf("expected 1 problem pod, got %+v", snapshot.ProblemPods)
	}
	if snapshot.HealthStatus != HealthDegraded {
		t.Errorf("expected degraded, got %q", snapshot.HealthStatus)
	}
	if snapshot.Diagnostics["nvidia-driver"] != "Pending" {
		t.Errorf("expected driver diagnostic Pending, got %v", snapshot.Diagnostics)
	}
}

func TestAssessHealthDegradedByRecentErrorsAlone(t *testing.T) {
	// No operator and no matching workloads, but the cluster is emitting
	// domain errors. That is degraded, not unknown.
	client := fakeCluster(t,
		[]runtime.Object{
			namedPod("default", "web-1", corev1.PodRunning),
			warningEvent("default", "ev-1", "web-1", "ERROR nvidia driver crashed"),
		},
		nil,
	)

	snapshot, err := NewHealth(client).AssessHealth(context.Background(), GPUTaxonomy, "all")
	if err != nil {
		t.Fatalf("AssessHealth: %v", err)
	}
	if snapshot.OperatorInstalled || snapshot.PodsTotal != 0 {
		t.Fatalf("expected no operator or workload facets, got %+v", snapshot)
	}
	if len(snapshot.RecentErrors) != 1 {
		t.Fatalf("expected the error event surfaced, got %+v", snapshot.RecentErrors)
	}
	if snapshot.HealthStatus != HealthDegraded {
		t.Errorf("recent errors must degrade the snapshot, got %q", snapshot.HealthStatus)
	}
}

func TestAssessHealthUnknownWhenAbsent(t *testing.T) {
	client := fakeCluster(t,
		[]runtime.Object{namedPod("default", "web-1", corev1.PodRunning)},
		nil,
	)

	snapshot, err := NewHealth(client).AssessHealth(context.Background(), DPUTaxonomy, "all")
	if err != nil {
		t.Fatalf("AssessHealth: %v", err)
	}
	if snapshot.HealthStatus != HealthUnknown {
		t.Errorf("expected unknown for absent capability, got %q", snapshot.HealthStatus)
	}
}

func TestAssessHealthUnavailable(t *testing.T) {
	client := &k8s.Client{}
	if _, err := NewHealth(client).AssessHealth(context.Background(), GPUTaxonomy, "all"); err != k8s.ErrUnavailable {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
