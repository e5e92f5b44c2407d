// Package multiplexer owns the terminal sessions of one panel.
//
// Session ids are the smallest unused positive integers, exactly one
// session is active whenever any exist, and the layout (ids, initial
// directories, active id) is persisted after every change and restored at
// most once per multiplexer.
package multiplexer
