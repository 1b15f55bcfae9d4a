// Package validate runs consistency checks over a compile setup before
// any rewrite happens: the rule packs, the referenced auxiliary files and
// optionally the input document itself.
package validate

import (
	"fmt"
	"os"
	"strings"

	"mapcraft/internal/conditions"
	"mapcraft/internal/config"
	"mapcraft/internal/grid"
	"mapcraft/internal/rules"
	"mapcraft/internal/vmf"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeRuleFileInvalid  = "rule_file_invalid"
	codeEmptyCondition   = "empty_condition"
	codeMissingAuxFile   = "missing_aux_file"
	codeMissingInstance  = "missing_instance_file"
	codeDanglingOverlay  = "dangling_overlay"
	codeDuplicateFacePos = "duplicate_face_position"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	// Source locates the issue: a rule pack file, a config path or an
	// entity id in the document.
	Source string
}

type Report struct {
	Issues []Issue
}

// Errors reports whether the report contains any error-severity issue.
func (r *Report) Errors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Run checks the configuration and rule packs; doc may be nil when no
// input document is at hand.
func Run(cfg *config.CompileConfig, reg *conditions.Registry, doc *vmf.Document) (*Report, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}

	issues := make([]Issue, 0)
	issues = append(issues, checkAuxFiles(cfg)...)

	loaded, err := rules.LoadDirs(cfg.Rules, rules.Options{Registry: reg})
	if err != nil {
		return nil, fmt.Errorf("loading rule packs: %w", err)
	}
	for _, loadErr := range loaded.Errors {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeRuleFileInvalid,
			Message:  loadErr.Error(),
		})
	}
	for _, cond := range loaded.Conditions {
		if cond.Empty() {
			issues = append(issues, Issue{
				Severity: SeverityWarn,
				Code:     codeEmptyCondition,
				Message:  "condition has no actions and can never have any effect",
				Source:   cond.Source,
			})
		}
	}

	if doc != nil {
		issues = append(issues, checkDocument(doc)...)
	}

	return &Report{Issues: issues}, nil
}

func checkAuxFiles(cfg *config.CompileConfig) []Issue {
	var issues []Issue
	for _, path := range []string{cfg.Templates, cfg.Style} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeMissingAuxFile,
				Message:  fmt.Sprintf("referenced file is not readable: %v", err),
				Source:   path,
			})
		}
	}
	return issues
}

func checkDocument(doc *vmf.Document) []Issue {
	var issues []Issue

	for _, ent := range doc.Instances() {
		if strings.TrimSpace(ent.File()) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     codeMissingInstance,
				Message:  "instance entity has no file",
				Source:   fmt.Sprintf("entity %d", ent.ID),
			})
		}
	}

	for _, over := range doc.Overlays() {
		for _, id := range over.OverlaySides() {
			if face, _ := doc.FindFace(id); face == nil {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     codeDanglingOverlay,
					Message:  fmt.Sprintf("overlay references missing face %d", id),
					Source:   fmt.Sprintf("entity %d", over.ID),
				})
			}
		}
	}

	issues = append(issues, checkFacePositions(doc)...)
	return issues
}

// checkFacePositions reports faces that share a cell side. The compile
// resolves these by blanking both faces, so authors usually want to know
// up front.
func checkFacePositions(doc *vmf.Document) []Issue {
	var issues []Issue
	seen := make(map[grid.Key]int)

	scan := func(solid *vmf.Solid) {
		for _, face := range solid.Faces {
			key := grid.KeyFor(face.Center(), face.Normal())
			if otherID, ok := seen[key]; ok {
				issues = append(issues, Issue{
					Severity: SeverityWarn,
					Code:     codeDuplicateFacePos,
					Message:  fmt.Sprintf("faces %d and %d occupy the same cell side", otherID, face.ID),
					Source:   fmt.Sprintf("cell %s normal %s", key.Cell, key.Normal),
				})
				continue
			}
			seen[key] = face.ID
		}
	}

	for _, solid := range doc.World.Solids {
		scan(solid)
	}
	for _, ent := range doc.BrushEnts() {
		if strings.EqualFold(ent.Classname(), "func_detail") {
			for _, solid := range ent.Solids {
				scan(solid)
			}
		}
	}
	return issues
}
