// Package distributionengine credits daily profit shares and referral rewards.
//
// Every credit is idempotent on its ledger key: (subject, period) for profit
// shares and (referrer, referred) for referral rewards. The module keeps
// domain/application logic decoupled from persistence and transport through
// ports and adapter composition.
package distributionengine
