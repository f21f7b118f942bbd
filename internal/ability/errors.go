// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrEee Contributors

package ability

// Error codes for ruleset construction and ability queries.
const (
	CodeInvalidRule       = "ABILITY_RULE_INVALID"
	CodeDuplicateRule     = "ABILITY_RULE_DUPLICATE"
	CodeRuleConflict      = "ABILITY_RULE_CONFLICT"
	CodeRulesetFinalized  = "ABILITY_RULESET_FINALIZED"
	CodeInvalidValueIndex = "ABILITY_VALUE_INDEX_INVALID"
)
