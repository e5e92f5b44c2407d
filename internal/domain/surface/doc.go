// Package surface defines the rendering surface a session draws into and
// the events it raises back.
//
// The real surface usually lives in a host panel (see the ws package for
// the remote proxy). Headless is the in-process implementation: a plain
// text line buffer used by the attach command and by tests.
package surface
