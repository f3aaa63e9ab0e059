package engine

import "fmt"

// NextPositionCode derives a department-scoped position code from the count
// of positions already in that department. Codes are sequential per
// department: "FIN-001", "FIN-002", ...
func NextPositionCode(departmentCode string, existingCount int) string {
	return fmt.Sprintf("%s-%03d", departmentCode, existingCount+1)
}

// NextChartVersion derives a chart version from company-wide chart counts.
// The major component counts charts that have ever been enforced (approved or
// revoked) plus one; the minor counts charts still in flight. Approval
// freezes the minor to zero.
func NextChartVersion(approvedOrRevokedCount, draftOrPendingCount int) string {
	return fmt.Sprintf("%d.%d", approvedOrRevokedCount+1, draftOrPendingCount)
}
