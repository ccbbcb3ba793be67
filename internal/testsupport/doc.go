// Package testsupport holds fixtures shared by lipsync package tests: a
// launcher root populated with stand-in files, a recording command executor,
// and history store helpers.
package testsupport
