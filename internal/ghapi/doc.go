// Package ghapi implements the typed GitHub API client used by the fetch
// layer. Each resource kind (repository summary, README, releases, manifest,
// issue/PR counts, commits, user profile) has a dedicated fetch method that
// shares one tuned http.Client, parses the X-RateLimit response headers and
// classifies the outcome (ok / not-found / rate-limited / transport / parse)
// instead of returning raw HTTP errors. A remaining quota of zero is treated
// as rate-limited even when the nominal status is 200, because some endpoints
// report an exhausted quota that way.
package ghapi
