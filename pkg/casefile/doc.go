// Package casefile provides the shared case data model and Redis schema for sleuth.
//
// # Overview
//
// A case is a deduction puzzle: a fixed set of categories, each with a closed set of
// candidate values, exactly one of which is correct. Investigative actions are offered
// for the case; executing one reveals evidence (a clue) and removes the action from
// future availability. The reasoning engine consumes cases and evidence through the
// provider methods exposed here and never writes to the store directly.
//
// Two providers implement the same contract:
//
//   - Client keeps cases in Redis, so several processes (the CLI, a watcher) can
//     share one case. Keys expire after the configured TTL.
//   - MemoryStore keeps cases in process memory. It backs offline batch runs and tests.
//
// # Usage Example
//
//	c := &casefile.Case{
//		ID:    uuid.New().String(),
//		Title: "The Study",
//		Categories: []casefile.Category{
//			{Name: "suspect", Candidates: []string{"Plum", "Scarlet", "Mustard"}},
//			{Name: "weapon", Candidates: []string{"Rope", "Knife", "Pipe"}},
//		},
//	}
//	if err := c.Validate(); err != nil {
//		log.Fatal(err)
//	}
//	if err := client.CreateCase(ctx, c, 24*time.Hour); err != nil {
//		log.Fatal(err)
//	}
//
// # Redis Schema
//
// All keys follow the pattern: sleuth:{namespace}:case:{case_id}[:{facet}]
//
// Case metadata: sleuth:{namespace}:case:{case_id} (hash)
// Available actions: sleuth:{namespace}:case:{case_id}:actions (hash, action id → JSON)
// Action order: sleuth:{namespace}:case:{case_id}:action_order (list of action ids)
// Evidence history: sleuth:{namespace}:case:{case_id}:evidence (list of JSON)
//
// Pub/Sub channel: sleuth:{namespace}:evidence_events
package casefile
