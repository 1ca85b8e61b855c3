package commands

import (
	"context"
	"fmt"

	"graphvault/internal/domain"
	"graphvault/internal/ports"
)

// CheckResult contains the findings of a check and, when requested, what
// the repair pass changed
type CheckResult struct {
	Report  *domain.Report
	Repair  *domain.RepairStats
	After   *domain.Report
	Message string
}

// CheckCommand verifies mirror, manifest and registry consistency
type CheckCommand struct {
	store  ports.GraphStore
	Repair bool
}

// NewCheckCommand creates a new CheckCommand
func NewCheckCommand(store ports.GraphStore, repair bool) *CheckCommand {
	return &CheckCommand{store: store, Repair: repair}
}

// Execute runs the check and the optional repair. After a repair the
// store is checked again so that the caller sees what is left.
func (c *CheckCommand) Execute(ctx context.Context) (*CheckResult, error) {
	report, err := c.store.Check()
	if err != nil {
		return nil, fmt.Errorf("failed to check store: %w", err)
	}

	res := &CheckResult{Report: report}
	if report.OK() {
		res.Message = fmt.Sprintf("Checked %d nodes and %d edges: no problems found", report.NodesChecked, report.EdgesChecked)
		return res, nil
	}
	if !c.Repair {
		res.Message = fmt.Sprintf("Found %d problems", len(report.Findings))
		return res, nil
	}

	stats, repairErr := c.store.Repair(report)
	res.Repair = stats
	after, err := c.store.Check()
	if err != nil {
		return nil, fmt.Errorf("failed to check store after repair: %w", err)
	}
	res.After = after

	if stats != nil {
		res.Message = fmt.Sprintf("Repaired %d of %d problems, %d remaining", stats.Fixed, len(report.Findings), len(after.Findings))
	}
	if repairErr != nil {
		return res, fmt.Errorf("repair incomplete: %w", repairErr)
	}
	return res, nil
}
