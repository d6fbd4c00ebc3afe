package app

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"feedstock/internal/types"
)

func (s Service) Inspect(ctx context.Context, req InspectRequest) (InspectResult, error) {
	if err := ctx.Err(); err != nil {
		return InspectResult{}, err
	}
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is required")
	}
	locks, err := s.OutputReader.ReadLock(filepath.Join(outputDir, "render.lock"))
	if err != nil {
		return InspectResult{}, err
	}

	grouped := map[types.RequirementSection][]string{}
	for _, entry := range locks {
		grouped[entry.Section] = append(grouped[entry.Section], entry.Package+"="+entry.Version)
	}
	var sections []InspectSectionSummary
	for section, packages := range grouped {
		sort.Strings(packages)
		sections = append(sections, InspectSectionSummary{
			Section:  section,
			Count:    len(packages),
			Packages: packages,
		})
	}
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].Section < sections[j].Section
	})

	result := InspectResult{
		LockCount: len(locks),
		Sections:  sections,
	}
	// The pin report is optional output; a missing file is not an error.
	report, err := s.OutputReader.ReadPinReport(filepath.Join(outputDir, "pin.report"))
	if err == nil {
		result.PinRecords = report.Records
	}
	return result, nil
}
