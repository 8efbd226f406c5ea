package introspect

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

func TestComprehensiveLogs(t *testing.T) {
	ns := "app"
	client := fakeCluster(t,
		[]runtime.Object{
			namedPod(ns, "cert-manager-webhook-1", corev1.PodRunning),
			warningEvent(ns, "ev-1", "cert-manager-webhook-1", "Readiness probe failed"),
			// Same namespace, unrelated object. Must not be reported.
			warningEvent(ns, "ev-2", "billing-api-0", "Back-off restarting container"),
		},
		[]runtime.Object{
			buildObj(ns, "cert-manager-build-1", "Complete"),
			buildObj(ns, "frontend-build-7", "Complete"),
		},
	)
	client.SetBuildLogFunc(func(ctx context.Context, namespace, name string) (string, error) {
		return "build finished\n", nil
	})

	logs, err := NewCollector(client).ComprehensiveLogs(context.Background(), "cert-manager", ns)
	if err != nil {
		t.Fatalf("ComprehensiveLogs: %v", err)
	}

	if logs.Method != MethodNameHeuristic {
		t.Errorf("expected heuristic resolution, got %q", logs.Method)
	}
	if len(logs.PodLogs) != 1 || logs.PodLogs[0].Pod != "cert-manager-webhook-1" {
		t.Fatalf("unexpected pod logs: %+v", logs.PodLogs)
	}
	if logs.PodLogs[0].Logs == "" {
		t.Error("expected pod log text")
	}
	if len(logs.Events) != 1 || logs.Events[0].Object != "Pod/cert-manager-webhook-1" {
		t.Errorf("expected only the operator's event, got %+v", logs.Events)
	}
	if len(logs.BuildLogs) != 1 || logs.BuildLogs[0].Build != "cert-manager-build-1" {
		t.Errorf("expected only the operator's build, got %+v", logs.BuildLogs)
	}
	if logs.BuildLogs[0].Logs != "build finished\n" {
		t.Errorf("unexpected build log text: %+v", logs.BuildLogs[0])
	}
}

func TestComprehensiveLogsPodLogFailureInline(t *testing.T) {
	ns := "app"
	client := fakeCluster(t,
		[]runtime.Object{namedPod(ns, "flaky-operator-1", corev1.PodPending)},
		nil,
	)

	logs, err := NewCollector(client).ComprehensiveLogs(context.Background(), "flaky-operator", ns)
	if err != nil {
		t.Fatalf("ComprehensiveLogs: %v", err)
	}
	if len(logs.PodLogs) != 1 {
		t.Fatalf("expected the pod entry kept, got %+v", logs.PodLogs)
	}
}
