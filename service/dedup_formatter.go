package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ludo-technologies/neardup/domain"
)

// DedupFormatterImpl implements the DedupOutputFormatter interface
type DedupFormatterImpl struct {
	utils *FormatUtils
}

// NewDedupFormatter creates a new dedup report formatter
func NewDedupFormatter() *DedupFormatterImpl {
	return &DedupFormatterImpl{utils: NewFormatUtils()}
}

// FormatDedupResponse formats a response according to the specified format
func (f *DedupFormatterImpl) FormatDedupResponse(response *domain.DedupResponse, format domain.OutputFormat, writer io.Writer) error {
	if response == nil {
		return domain.NewOutputError("response cannot be nil", nil)
	}

	switch format {
	case domain.OutputFormatText:
		_, err := io.WriteString(writer, f.formatAsText(response))
		if err != nil {
			return domain.NewOutputError("failed to write text report", err)
		}
		return nil
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatCSV:
		return f.formatAsCSV(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *DedupFormatterImpl) formatAsText(response *domain.DedupResponse) string {
	var b strings.Builder
	u := f.utils

	b.WriteString(u.FormatMainHeader("Near-Duplicate Detection Report"))

	if stats := response.Statistics; stats != nil {
		b.WriteString(u.FormatSectionHeader("Summary"))
		if response.RunID != "" {
			b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Run ID", response.RunID))
		}
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Files read", stats.FilesRead))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Records", stats.TotalRecords))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Kept", stats.KeptRecords))

		dropped := strconv.Itoa(stats.DroppedRecords)
		if stats.TotalRecords > 0 {
			pct := float64(stats.DroppedRecords) / float64(stats.TotalRecords) * 100
			dropped += " (" + u.FormatPercentage(pct) + ")"
		}
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Dropped", dropped))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Duplicate groups", stats.DuplicateGroups))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Candidate pairs", stats.CandidatePairs))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Duration", u.FormatDuration(response.Duration)))
		b.WriteString(u.FormatSectionSeparator())
	}

	if p := response.Parameters; p != nil {
		b.WriteString(u.FormatSectionHeader("Parameters"))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Signature",
			fmt.Sprintf("%d hashes (%d bands x %d rows)", p.NumHashes, p.Bands, p.Rows)))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Threshold", fmt.Sprintf("~%.3f", p.Threshold)))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Shingle size", p.ShingleSize))
		seed := "random"
		if p.Seed != nil {
			seed = strconv.FormatInt(*p.Seed, 10)
		}
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Seed", seed))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Retention", p.Retention))
		if p.VerifyThreshold > 0 {
			b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Verify threshold", fmt.Sprintf("%.2f", p.VerifyThreshold)))
		}
		b.WriteString(u.FormatSectionSeparator())
	}

	// Group listing is on unless the request turned it off
	if response.Request != nil && !response.Request.ShowGroups {
		return b.String()
	}

	b.WriteString(u.FormatSectionHeader("Duplicate Groups"))
	if len(response.Groups) == 0 {
		b.WriteString(strings.Repeat(" ", SectionPadding) + "No near-duplicates found.\n")
		return b.String()
	}
	for _, g := range response.Groups {
		fmt.Fprintf(&b, "%sGroup %d (%d records, similarity %.3f)\n",
			strings.Repeat(" ", SectionPadding), g.ID, g.Size(), g.Similarity)
		b.WriteString(groupLine(u.FormatKept("keep"), g.Kept, g.KeptSource))
		for i, d := range g.Dropped {
			source := ""
			if i < len(g.DroppedSources) {
				source = g.DroppedSources[i]
			}
			b.WriteString(groupLine(u.FormatDropped("drop"), d, source))
		}
	}
	return b.String()
}

func groupLine(marker string, ordinal int, source string) string {
	line := fmt.Sprintf("%s%s #%d", strings.Repeat(" ", ItemPadding), marker, ordinal)
	if source != "" {
		line += "  " + source
	}
	return line + "\n"
}

// formatAsCSV writes one row per record that belongs to a duplicate group
func (f *DedupFormatterImpl) formatAsCSV(response *domain.DedupResponse, writer io.Writer) error {
	w := csv.NewWriter(writer)

	if err := w.Write([]string{"group_id", "role", "ordinal", "source", "similarity"}); err != nil {
		return domain.NewOutputError("failed to write CSV header", err)
	}

	for _, g := range response.Groups {
		id := strconv.Itoa(g.ID)
		sim := strconv.FormatFloat(g.Similarity, 'f', 4, 64)
		if err := w.Write([]string{id, "kept", strconv.Itoa(g.Kept), g.KeptSource, sim}); err != nil {
			return domain.NewOutputError("failed to write CSV record", err)
		}
		for i, d := range g.Dropped {
			source := ""
			if i < len(g.DroppedSources) {
				source = g.DroppedSources[i]
			}
			if err := w.Write([]string{id, "dropped", strconv.Itoa(d), source, sim}); err != nil {
				return domain.NewOutputError("failed to write CSV record", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return domain.NewOutputError("failed to flush CSV output", err)
	}
	return nil
}
