// Package plan resolves the layered release configuration into a concrete,
// unambiguous execution plan: one shared version plus one fully collapsed
// PackagePlan per selected package. Resolution is deterministic for
// identical inputs.
package plan
