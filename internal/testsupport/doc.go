// Package testsupport builds temp-directory configs and survey export
// fixtures for package tests.
package testsupport
