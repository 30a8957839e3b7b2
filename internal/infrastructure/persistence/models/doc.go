// Package models contains GORM persistence models that map to database tables.
// Domain types stay free of ORM tags; each model converts with ToDomain and
// FromDomain.
//
// Tables:
//   - plans: catalog, soft-deleted rows are tombstones that keep ids reserved
//   - documents, document_sequences: invoices, quotes, recurring templates
//   - payment_orders, payment_ledger, subscriptions: paid plan transitions
//   - api_keys: hashed API keys
package models
