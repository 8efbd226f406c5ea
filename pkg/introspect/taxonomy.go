package introspect

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Taxonomy defines the keyword set that identifies one hardware capability
// domain across operator names, node labels, and pod names.
type Taxonomy struct {
	Domain   string   `yaml:"domain" json:"domain"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Built-in capability taxonomies. Keyword sets come from the label and
// naming conventions of the NVIDIA GPU and network operators.
var (
	GPUTaxonomy = Taxonomy{
		Domain:   "gpu",
		Keywords: []string{"nvidia", "nvidia.com", "gpu", "cuda", "dcgm", "mig"},
	}
	DPUTaxonomy = Taxonomy{
		Domain:   "dpu",
		Keywords: []string{"bluefield", "dpu", "mellanox", "connectx", "sriov", "rdma", "ofed"},
	}
)

// Matches reports whether any keyword appears in s, case-insensitively.
func (t Taxonomy) Matches(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range t.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether any of the given strings matches.
func (t Taxonomy) MatchesAny(values ...string) bool {
	for _, v := range values {
		if t.Matches(v) {
			return true
		}
	}
	return false
}

// MatchesLabels reports whether any label key or value matches.
func (t Taxonomy) MatchesLabels(labels map[string]string) bool {
	for k, v := range labels {
		if t.Matches(k) || t.Matches(v) {
			return true
		}
	}
	return false
}

type taxonomyFile struct {
	Taxonomies []Taxonomy `yaml:"taxonomies"`
}

// LoadTaxonomies reads taxonomy overrides from a YAML file. Domains present
// in the file replace the built-in keyword sets; unknown domains are added.
func LoadTaxonomies(path string) (map[string]Taxonomy, error) {
	result := map[string]Taxonomy{
		GPUTaxonomy.Domain: GPUTaxonomy,
		DPUTaxonomy.Domain: DPUTaxonomy,
	}
	if path == "" {
		return result, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse taxonomy file: %w", err)
	}
	for _, t := range file.Taxonomies {
		if t.Domain == "" || len(t.Keywords) == 0 {
			return nil, fmt.Errorf("taxonomy entries need a domain and at least one keyword")
		}
		for i, kw := range t.Keywords {
			t.Keywords[i] = strings.ToLower(kw)
		}
		result[t.Domain] = t
	}
	return result, nil
}
