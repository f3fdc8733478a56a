package careplan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	textHeader = "OMAHA SYSTEM CARE PLAN SUMMARY"
	textRule   = "--------------------------------------------------"

	// The text report shows only the most recent interventions; the JSON
	// document carries all of them.
	textInterventionLimit = 5
)

// RenderText produces the fixed-layout plain text report.
func RenderText(s *Snapshot) string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(textHeader)
	line(textRule)
	line("Patient: %s", s.Patient.Name)
	line("DOB: %s", s.Patient.DateOfBirth)
	line("TIN: %s", s.Patient.TIN)
	line("Phone: %s", strOrEmpty(s.Patient.Phone))
	line("Address: %s", strOrEmpty(s.Patient.Address))
	line("Generated: %s", s.GeneratedAt.Format("2006-01-02 15:04"))
	line(textRule)
	line("")

	for i, p := range s.ActiveProblems {
		line("PROBLEM %d: %s (Type: %s, Domain: %s)", i+1, p.ProblemName, p.Type, p.Domain)

		names := make([]string, 0, len(p.Symptoms))
		for _, sym := range p.Symptoms {
			text := sym.Description
			if sym.Comment != nil && *sym.Comment != "" {
				text += fmt.Sprintf(" (%s)", *sym.Comment)
			}
			names = append(names, text)
		}
		line("  Symptoms: %s", strings.Join(names, ", "))

		if o := p.LatestOutcome; o != nil {
			line("  Latest Outcome:")
			if o.Knowledge != "" {
				line("    - Knowledge: %s (Rating: %d/5)", o.Knowledge, o.Scores.Knowledge)
			}
			if o.Behavior != "" {
				line("    - Behavior:  %s (Rating: %d/5)", o.Behavior, o.Scores.Behavior)
			}
			if o.Status != "" {
				line("    - Status:    %s (Rating: %d/5)", o.Status, o.Scores.Status)
			}
		} else {
			line("  Latest Outcome: None recorded")
		}

		if len(p.AllInterventions) > 0 {
			line("  Interventions:")
			shown := p.AllInterventions
			if len(shown) > textInterventionLimit {
				shown = shown[:textInterventionLimit]
			}
			for _, iv := range shown {
				line("    - %s: %s - %s (%s)", iv.Date.Format("2006-01-02"),
					iv.Category, iv.Target, strOrEmpty(iv.Details))
			}
		} else {
			line("  Interventions: None recorded")
		}

		line("")
	}

	return b.String()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// RenderJSON produces the structured document with labels, raw rating ids,
// and RFC 3339 dates.
func RenderJSON(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// NoteTitle names the Group Office note for this patient.
func NoteTitle(s *Snapshot) string {
	return "Care Plan: " + s.Patient.Name
}

// ExportFilename builds the download filename: the patient name reduced to
// alphanumerics, spaces, underscores, and hyphens, spaces then turned into
// hyphens, plus a minute-resolution timestamp.
func ExportFilename(name string, generated time.Time, ext string) string {
	var safe strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			safe.WriteRune(r)
		case r == ' ', r == '_', r == '-':
			safe.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(safe.String(), " ", "-")
	return fmt.Sprintf("CarePlan_%s_%s.%s", cleaned, generated.Format("2006-01-02_15-04"), ext)
}
