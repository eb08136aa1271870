package check

import (
	"fmt"
	"sort"

	"github.com/scenes-dev/scenes/internal/errors"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Phase names a group of related checks.
type Phase string

const (
	PhaseSources    Phase = "sources"
	PhaseOrphans    Phase = "orphans"
	PhaseArtifacts  Phase = "artifacts"
	PhaseUIImports  Phase = "ui-imports"
	PhasePackages   Phase = "packages"
	PhaseIsolation  Phase = "isolation"
	PhaseVocabulary Phase = "vocabulary"
)

// Phases lists every phase in report order.
var Phases = []Phase{
	PhaseSources,
	PhaseOrphans,
	PhaseArtifacts,
	PhaseUIImports,
	PhasePackages,
	PhaseIsolation,
	PhaseVocabulary,
}

var phaseTitles = map[Phase]string{
	PhaseSources:    "Checking scene source files exist",
	PhaseOrphans:    "Checking for orphan scene files",
	PhaseArtifacts:  "Checking generated registry items",
	PhaseUIImports:  "Checking UI component imports",
	PhasePackages:   "Checking package imports",
	PhaseIsolation:  "Checking cross-scene imports",
	PhaseVocabulary: "Checking dependency vocabulary",
}

// Title returns the heading printed for the phase.
func (p Phase) Title() string {
	if t, ok := phaseTitles[p]; ok {
		return t
	}
	return string(p)
}

func (p Phase) order() int {
	for i, q := range Phases {
		if q == p {
			return i
		}
	}
	return len(Phases)
}

// Finding is one problem found by a check.
type Finding struct {
	Severity Severity `json:"severity"`
	Phase    Phase    `json:"phase"`
	Code     string   `json:"code"`
	Scene    string   `json:"scene,omitempty"`
	File     string   `json:"file,omitempty"`
	Message  string   `json:"message"`
}

// String formats the finding as a report line.
func (f Finding) String() string {
	label := "ERROR:"
	if f.Severity == SeverityWarning {
		label = "WARN: "
	}
	return fmt.Sprintf("%s %s", label, f.Message)
}

// Group is the findings of one phase.
type Group struct {
	Phase    Phase
	Findings []Finding
}

// Report is the result of a checker run.
type Report struct {
	// Scenes is the number of scene records checked.
	Scenes int `json:"scenes"`

	// Phases are the phases that ran, in report order.
	Phases []Phase `json:"phases"`

	// Findings are sorted by phase, then scene id.
	Findings []Finding `json:"findings"`
}

// Errors returns the number of error findings.
func (r *Report) Errors() int {
	return r.count(SeverityError)
}

// Warnings returns the number of warning findings.
func (r *Report) Warnings() int {
	return r.count(SeverityWarning)
}

// HasErrors reports whether any finding is an error.
func (r *Report) HasErrors() bool {
	return r.Errors() > 0
}

// Summary returns the one-line result of the run.
func (r *Report) Summary() string {
	return fmt.Sprintf("Validation complete: %d error(s), %d warning(s)", r.Errors(), r.Warnings())
}

// Err returns a validation failure error when the report has errors.
func (r *Report) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return errors.New("S011").WithDetail(r.Summary())
}

// ByPhase groups the findings by phase. Every phase that ran is present,
// including phases without findings.
func (r *Report) ByPhase() []Group {
	groups := make([]Group, 0, len(r.Phases))
	for _, p := range r.Phases {
		g := Group{Phase: p}
		for _, f := range r.Findings {
			if f.Phase == p {
				g.Findings = append(g.Findings, f)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// ForScene returns the findings recorded for id.
func (r *Report) ForScene(id string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Scene == id {
			out = append(out, f)
		}
	}
	return out
}

func (r *Report) count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// sortFindings orders findings by phase, then scene id. Findings of the same
// scene and phase keep the order their check produced them in.
func sortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Phase != b.Phase {
			return a.Phase.order() < b.Phase.order()
		}
		return a.Scene < b.Scene
	})
}
