// Package retrypolicy holds the stateless retry decision logic: error-kind
// classification from failure message patterns, the exponential backoff
// schedule, and retry eligibility checks. It deliberately owns no job state;
// the registry and orchestrator consult it and act on the answers.
package retrypolicy
