//go:build animdebug

package controller

// debugChecks enables runtime-stream bounds and record-size assertions.
const debugChecks = true
