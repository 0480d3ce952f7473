// Package outbox implements the transactional outbox: records are written in the same
// database transaction as the domain change that produced them, and a poller later
// delivers them to the message broker.
//
// Delivery is at-least-once. The poller publishes a record before it persists the
// PUBLISHED status, so a crash or a failed status update between the broker ack and
// the database write leaves the record eligible and it is published again on a later
// tick. Consumers must deduplicate on the dedupKey header (or the message id).
// Multiple poller instances against the same table are allowed and can produce the
// same duplicates; no distributed lock is taken.
package outbox
