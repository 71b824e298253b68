package casefile

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced so that several sleuth
// deployments (or test runs) can share one Redis server.
//
// Key pattern: sleuth:{namespace}:case:{case_id}[:{facet}]
// Channel pattern: sleuth:{namespace}:{event_type}_events

// CaseKey returns the Redis key for a case's metadata hash.
// Pattern: sleuth:{namespace}:case:{case_id}
func CaseKey(namespace, caseID string) string {
	return fmt.Sprintf("sleuth:%s:case:%s", namespace, caseID)
}

// CaseActionsKey returns the Redis key for a case's available-actions hash.
// Pattern: sleuth:{namespace}:case:{case_id}:actions
func CaseActionsKey(namespace, caseID string) string {
	return fmt.Sprintf("sleuth:%s:case:%s:actions", namespace, caseID)
}

// CaseActionOrderKey returns the Redis key for the list preserving action offering order.
// Pattern: sleuth:{namespace}:case:{case_id}:action_order
func CaseActionOrderKey(namespace, caseID string) string {
	return fmt.Sprintf("sleuth:%s:case:%s:action_order", namespace, caseID)
}

// CaseEvidenceKey returns the Redis key for a case's evidence list.
// Pattern: sleuth:{namespace}:case:{case_id}:evidence
func CaseEvidenceKey(namespace, caseID string) string {
	return fmt.Sprintf("sleuth:%s:case:%s:evidence", namespace, caseID)
}

// CaseKeyPrefix returns the common prefix of every case metadata key in a namespace.
func CaseKeyPrefix(namespace string) string {
	return fmt.Sprintf("sleuth:%s:case:", namespace)
}

// EvidenceEventsChannel returns the Pub/Sub channel name for evidence events.
// Pattern: sleuth:{namespace}:evidence_events
func EvidenceEventsChannel(namespace string) string {
	return fmt.Sprintf("sleuth:%s:evidence_events", namespace)
}

// caseKeys lists every key owned by a case, for TTL refresh and deletion.
func caseKeys(namespace, caseID string) []string {
	return []string{
		CaseKey(namespace, caseID),
		CaseActionsKey(namespace, caseID),
		CaseActionOrderKey(namespace, caseID),
		CaseEvidenceKey(namespace, caseID),
	}
}
