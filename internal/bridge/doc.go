// Package bridge is the Test API facing facade over translation, the run
// registry, the pipeline engine, status reconciliation and result
// aggregation.
//
// Submit never retries the engine. A failed start leaves no registry entry,
// so a run-id returned by Submit can always be queried afterwards.
package bridge
