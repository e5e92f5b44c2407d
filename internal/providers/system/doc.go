// Package system bridges to the operating system: opening URLs and files
// with their default handler, and reporting runtime information.
package system
