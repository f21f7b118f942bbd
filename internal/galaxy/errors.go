// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package galaxy

// Error codes for snapshot operations. Lookups report the referrable
// package's codes.
const (
	CodeInvalidScenario = "GALAXY_SCENARIO_INVALID"
	CodeInvalidMove     = "GALAXY_MOVE_INVALID"
	CodeUnknownRule     = "GALAXY_RULE_UNKNOWN"
	CodeDuplicateName   = "GALAXY_NAME_DUPLICATE"
)
