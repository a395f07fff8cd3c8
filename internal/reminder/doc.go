// Package reminder is the core of the bot: a small natural-language time
// parser, a durable owner-scoped reminder store, and a cron-driven
// scheduler that fires each reminder at most once as it approaches its
// trigger time.
package reminder
