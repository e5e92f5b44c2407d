// Package notify delivers transient user notices, rate limited so a
// failing shell cannot flood the host with popups.
package notify
