// Package pages holds the thin repositories for the portal pages beyond
// the schedule grid: scores, student profile, elective list and
// experiment list. Each repository fetches through the engine's
// re-authenticating contract and extracts just the fields the page
// reliably carries.
package pages
