package introspect

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AdamKaabyia/oc-mcp/pkg/k8s"
)

// Default search caps. Logs dominate response size, so pods get the
// tightest budget; events are cheap single lines.
const (
	DefaultMaxPods      = 20
	DefaultMaxEvents    = 200
	DefaultMaxBuilds    = 10
	maxLinesPerPod      = 5
	maxLinesPerBuild    = 3
	defaultLogTailLines = 500
)

// SearchOptions bound how much of each source a query scans.
type SearchOptions struct {
	MaxPods   int
	MaxEvents int
	MaxBuilds int
	TailLines int64
	// Sources restricts the scan; empty means all sources.
	Sources []string
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.MaxPods <= 0 {
		o.MaxPods = DefaultMaxPods
	}
	if o.MaxEvents <= 0 {
		o.MaxEvents = DefaultMaxEvents
	}
	if o.MaxBuilds <= 0 {
		o.MaxBuilds = DefaultMaxBuilds
	}
	if o.TailLines <= 0 {
		o.TailLines = defaultLogTailLines
	}
	if len(o.Sources) == 0 {
		o.Sources = []string{SourcePodLogs, SourceEvents, SourceBuilds}
	}
	return o
}

func (o SearchOptions) wants(source string) bool {
	for _, s := range o.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// Searcher scans pod logs, events, and build logs for a pattern.
type Searcher struct {
	client *k8s.Client
}

// NewSearcher returns a searcher backed by the given cluster client.
func NewSearcher(client *k8s.Client) *Searcher {
	return &Searcher{client: client}
}

type sourceResult struct {
	hits    []SearchHit
	scanned int
	errs    []string
}

// Search scans all requested sources concurrently and merges hits in a
// fixed source order so identical cluster state yields identical output.
// Per-object failures are recorded and skipped; a query only fails when
// the cluster itself is unreachable.
//
// Matching is a case-insensitive substring test. Only the most recent log
// lines of each pod are scanned, bounded by TailLines, so matches older
// than the tail window are not found.
func (s *Searcher) Search(ctx context.Context, pattern, namespace string, opts SearchOptions) (*SearchResult, error) {
	if pattern == "" {
		return nil, fmt.Errorf("search pattern is required")
	}
	if !s.client.Available() {
		return nil, k8s.ErrUnavailable
	}
	opts = opts.withDefaults()

	result := &SearchResult{
		Pattern:   pattern,
		Namespace: namespace,
		Hits:      []SearchHit{},
		Scanned:   map[string]int{},
	}

	needle := strings.ToLower(pattern)
	results := map[string]*sourceResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	scan := func(source string, fn func() sourceResult) {
		if !opts.wants(source) {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := fn()
			mu.Lock()
			results[source] = &r
			mu.Unlock()
		}()
	}

	scan(SourcePodLogs, func() sourceResult { return s.searchPodLogs(ctx, needle, namespace, opts) })
	scan(SourceEvents, func() sourceResult { return s.searchEvents(ctx, needle, namespace, opts) })
	scan(SourceBuilds, func() sourceResult { return s.searchBuilds(ctx, needle, namespace, opts) })
	wg.Wait()

	for _, source := range []string{SourcePodLogs, SourceEvents, SourceBuilds} {
		r, ok := results[source]
		if !ok {
			continue
		}
		result.Hits = append(result.Hits, r.hits...)
		result.Scanned[source] = r.scanned
		result.Errors = append(result.Errors, r.errs...)
	}
	result.TotalMatches = len(result.Hits)
	return result, nil
}

func (s *Searcher) searchPodLogs(ctx context.Context, needle, namespace string, opts SearchOptions) sourceResult {
	var r sourceResult
	pods, err := s.client.ListPods(ctx, namespace)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("list pods: %v", err))
		return r
	}
	if len(pods) > opts.MaxPods {
		pods = pods[:opts.MaxPods]
	}

	for _, pod := range pods {
		r.scanned++
		logs, err := s.client.GetPodLogs(ctx, pod.Namespace, pod.Name, opts.TailLines)
		if err != nil {
			r.errs = append(r.errs, fmt.Sprintf("logs %s/%s: %v", pod.Namespace, pod.Name, err))
			continue
		}
		lines := matchLines(logs, needle, maxLinesPerPod)
		if len(lines) == 0 {
			continue
		}
		r.hits = append(r.hits, SearchHit{
			Source:    SourcePodLogs,
			Namespace: pod.Namespace,
			Object:    pod.Name,
			Lines:     lines,
		})
	}
	return r
}

func (s *Searcher) searchEvents(ctx context.Context, needle, namespace string, opts SearchOptions) sourceResult {
	var r sourceResult
	events, err := s.client.ListEvents(ctx, namespace, int64(opts.MaxEvents))
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("list events: %v", err))
		return r
	}

	for _, ev := range events {
		r.scanned++
		// Only the message is searched; type, reason, and object name are
		// carried for display but do not count as matches.
		if !strings.Contains(strings.ToLower(ev.Message), needle) {
			continue
		}
		line := fmt.Sprintf("%s %s %s/%s: %s", ev.Type, ev.Reason, ev.InvolvedObject.Kind, ev.InvolvedObject.Name, ev.Message)
		hit := SearchHit{
			Source:    SourceEvents,
			Namespace: ev.Namespace,
			Object:    ev.InvolvedObject.Name,
			Lines:     []string{line},
		}
		if !ev.LastTimestamp.IsZero() {
			hit.Timestamp = ev.LastTimestamp.UTC().Format(time.RFC3339)
		}
		r.hits = append(r.hits, hit)
	}
	return r
}

func (s *Searcher) searchBuilds(ctx context.Context, needle, namespace string, opts SearchOptions) sourceResult {
	var r sourceResult
	builds, err := s.client.ListBuilds(ctx, namespace)
	if err != nil {
		// Missing build API means a plain Kubernetes cluster, not a failure.
		if k8s.IsNotFound(err) {
			return r
		}
		r.errs = append(r.errs, fmt.Sprintf("list builds: %v", err))
		return r
	}
	if len(builds) > opts.MaxBuilds {
		builds = builds[:opts.MaxBuilds]
	}

	for _, b := range builds {
		r.scanned++
		logs, err := s.client.GetBuildLog(ctx, b.Namespace, b.Name)
		if err != nil {
			r.errs = append(r.errs, fmt.Sprintf("build log %s/%s: %v", b.Namespace, b.Name, err))
			continue
		}
		lines := matchLines(logs, needle, maxLinesPerBuild)
		if len(lines) == 0 {
			continue
		}
		r.hits = append(r.hits, SearchHit{
			Source:    SourceBuilds,
			Namespace: b.Namespace,
			Object:    b.Name,
			Lines:     lines,
		})
	}
	return r
}

// SearchCapability runs Search and keeps only hits whose object, namespace,
// or matched lines belong to the taxonomy domain.
func (s *Searcher) SearchCapability(ctx context.Context, taxonomy Taxonomy, pattern, namespace string, opts SearchOptions) (*SearchResult, error) {
	result, err := s.Search(ctx, pattern, namespace, opts)
	if err != nil {
		return nil, err
	}
	result.Hits = filterHitsByTaxonomy(result.Hits, taxonomy)
	if result.Hits == nil {
		result.Hits = []SearchHit{}
	}
	result.TotalMatches = len(result.Hits)
	return result, nil
}

// matchLines returns up to max lines of text containing the lowercase
// needle, preserving input order.
func matchLines(text, needle string, max int) []string {
	var matched []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), needle) {
			matched = append(matched, strings.TrimRight(line, "\r"))
			if len(matched) >= max {
				break
			}
		}
	}
	return matched
}
