package introspect

import (
	"context"
	"fmt"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func buildObj(namespace, name, phase string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "build.openshift.io/v1",
		"kind":       "Build",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": namespace,
		},
		"status": map[string]interface{}{
			"phase": phase,
		},
	}}
}

func warningEvent(namespace, name, object, message string) *corev1.Event {
	return &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: name, Namespace: namespace},
		Type:           "Warning",
		Reason:         "Failed",
		Message:        message,
		InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: object},
	}
}

// The fake clientset serves the fixed string "fake logs" for every pod log
// request, so pod log assertions search for "fake".
func TestSearchPodLogsAndEvents(t *testing.T) {
	ns := "app"
	client := fakeCluster(t,
		[]runtime.Object{
			namedPod(ns, "web-1", corev1.PodRunning),
			warningEvent(ns, "ev-1", "web-1", "Back-off restarting FAKE container"),
			warningEvent(ns, "ev-2", "web-2", "pulled image"),
		},
		nil,
	)

	result, err := NewSearcher(client).Search(context.Background(), "fake", ns, SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.TotalMatches != 2 {
		t.Fatalf("expected pod log hit and event hit, got %d: %+v", result.TotalMatches, result.Hits)
	}
	// Pod log hits always precede event hits.
	if result.Hits[0].Source != SourcePodLogs || result.Hits[1].Source != SourceEvents {
		t.Errorf("unexpected source order: %s, %s", result.Hits[0].Source, result.Hits[1].Source)
	}
	if result.Scanned[SourcePodLogs] != 1 || result.Scanned[SourceEvents] != 2 {
		t.Errorf("unexpected scan counts: %v", result.Scanned)
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	ns := "app"
	client := fakeCluster(t,
		[]runtime.Object{warningEvent(ns, "ev-1", "web-1", "CrashLoopBackOff detected")},
		nil,
	)

	result, err := NewSearcher(client).Search(context.Background(), "CRASHLOOP", ns, SearchOptions{
		Sources: []string{SourceEvents},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.TotalMatches != 1 {
		t.Fatalf("expected case-insensitive event match, got %d", result.TotalMatches)
	}
}

func TestSearchEventsMatchMessageOnly(t *testing.T) {
	ns := "app"
	// "failed" appears in the event reason and "web" in the object name;
	// neither is in a message, so neither pattern may hit.
	client := fakeCluster(t,
		[]runtime.Object{warningEvent(ns, "ev-1", "web-1", "pulled image")},
		nil,
	)

	searcher := NewSearcher(client)
	for _, pattern := range []string{"failed", "web-1"} {
		result, err := searcher.Search(context.Background(), pattern, ns, SearchOptions{
			Sources: []string{SourceEvents},
		})
		if err != nil {
			t.Fatalf("Search(%q): %v", pattern, err)
		}
		if result.TotalMatches != 0 {
			t.Errorf("pattern %q outside the message must not match, got %+v", pattern, result.Hits)
		}
	}
}

func TestSearchPodCap(t *testing.T) {
	ns := "app"
	var objs []runtime.Object
	for i := 0; i < 6; i++ {
		objs = append(objs, namedPod(ns, fmt.Sprintf("web-%d", i), corev1.PodRunning))
	}
	client := fakeCluster(t, objs, nil)

	result, err := NewSearcher(client).Search(context.Background(), "fake", ns, SearchOptions{
		MaxPods: 3,
		Sources: []string{SourcePodLogs},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Scanned[SourcePodLogs] != 3 {
		t.Errorf("expected pod cap of 3 to bound the scan, scanned %d", result.Scanned[SourcePodLogs])
	}
}

func TestSearchBuildLogs(t *testing.T) {
	ns := "app"
	client := fakeCluster(t, nil, []runtime.Object{
		buildObj(ns, "webapp-build-1", "Complete"),
		buildObj(ns, "webapp-build-2", "Failed"),
	})
	client.SetBuildLogFunc(func(ctx context.Context, namespace, name string) (string, error) {
		if name == "webapp-build-2" {
			return "step 1 ok\nERROR: compile failed\nERROR: linker failed\nERROR: tests failed\nERROR: extra\n", nil
		}
		return "all steps ok\n", nil
	})

	result, err := NewSearcher(client).Search(context.Background(), "error", ns, SearchOptions{
		Sources: []string{SourceBuilds},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.TotalMatches != 1 {
		t.Fatalf("expected 1 build hit, got %d", result.TotalMatches)
	}
	hit := result.Hits[0]
	if hit.Object != "webapp-build-2" {
		t.Errorf("unexpected build hit: %+v", hit)
	}
	if len(hit.Lines) != 3 {
		t.Errorf("expected build matches capped at 3 lines, got %d", len(hit.Lines))
	}
}

func TestSearchBuildLogErrorContinues(t *testing.T) {
	ns := "app"
	client := fakeCluster(t,
		[]runtime.Object{warningEvent(ns, "ev-1", "web-1", "disk error on node")},
		[]runtime.Object{buildObj(ns, "b1", "Complete")},
	)
	client.SetBuildLogFunc(func(ctx context.Context, namespace, name string) (string, error) {
		return "", fmt.Errorf("log endpoint unavailable")
	})

	result, err := NewSearcher(client).Search(context.Background(), "error", ns, SearchOptions{
		Sources: []string{SourceEvents, SourceBuilds},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.TotalMatches != 1 || result.Hits[0].Source != SourceEvents {
		t.Fatalf("expected the event hit to survive the build failure, got %+v", result.Hits)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected the build failure recorded, got %v", result.Errors)
	}
}

// podLogTail digs the requested tail window out of the recorded log
// actions, nil when no log request carried one.
func podLogTail(t *testing.T, fake *k8sfake.Clientset) *int64 {
	t.Helper()
	var tail *int64
	for _, action := range fake.Actions() {
		if action.GetSubresource() != "log" {
			continue
		}
		if generic, ok := action.(k8stesting.GenericAction); ok {
			if opts, ok := generic.GetValue().(*corev1.PodLogOptions); ok {
				tail = opts.TailLines
			}
		}
	}
	return tail
}

// Matches older than the tail window are unreachable because the API
// server only returns the window; the searcher must request exactly the
// configured number of trailing lines.
func TestSearchScansOnlyRecentLogTail(t *testing.T) {
	ns := "app"
	typed := k8sfake.NewSimpleClientset(namedPod(ns, "web-1", corev1.PodRunning))
	client := fakeCluster(t, nil, nil)
	client.SetClient(typed)

	if _, err := NewSearcher(client).Search(context.Background(), "error", ns, SearchOptions{
		TailLines: 25,
		Sources:   []string{SourcePodLogs},
	}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	tail := podLogTail(t, typed)
	if tail == nil || *tail != 25 {
		t.Fatalf("expected the log scan bounded to the last 25 lines, got %v", tail)
	}
}

func TestSearchDefaultLogTail(t *testing.T) {
	ns := "app"
	typed := k8sfake.NewSimpleClientset(namedPod(ns, "web-1", corev1.PodRunning))
	client := fakeCluster(t, nil, nil)
	client.SetClient(typed)

	if _, err := NewSearcher(client).Search(context.Background(), "error", ns, SearchOptions{
		Sources: []string{SourcePodLogs},
	}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	tail := podLogTail(t, typed)
	if tail == nil || *tail != defaultLogTailLines {
		t.Fatalf("expected the default tail window requested, got %v", tail)
	}
}

func TestSearchEmptyPattern(t *testing.T) {
	client := fakeCluster(t, nil, nil)
	if _, err := NewSearcher(client).Search(context.Background(), "", "app", SearchOptions{}); err == nil {
		t.Fatal("expected error for empty pattern")
	}
}

func TestMatchLinesCap(t *testing.T) {
	text := "error one\nok\nerror two\nerror three\nerror four\nerror five\nerror six\n"
	lines := matchLines(text, "error", 5)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if lines[0] != "error one" || lines[4] != "error five" {
		t.Errorf("unexpected lines: %v", lines)
	}
}
