// Package billing provides the domain model for plans, entitlements and paid plan upgrades.
//
// This package implements the billing bounded context, which is responsible for:
//   - Defining subscription plans (limits, price, capability set)
//   - Deriving a user's effective entitlement from their plan and live monthly usage
//   - Modelling gateway payment orders and signed verification receipts
//   - Recording which plan a user is on (Subscription) and which payments were applied (LedgerEntry)
//
// Key Aggregates:
//   - Plan: catalog entry, identified by a stable slug
//   - PaymentOrder: gateway order minted for one paid plan transition
//   - Subscription: the user's current plan, the single source of truth for plan assignment
//
// Value Objects:
//   - FeatureSet: capability flags granted by a plan
//   - UsageWindow / UsageCount: the calendar month being metered and the count inside it
//   - Entitlement: derived per request, never stored
//
// The billing domain integrates with:
//   - Document domain: as the source of usage (invoices created this month)
//   - Identity domain: the provider's metadata bag mirrors the subscription for the UI
package billing
