//go:build !animdebug

package controller

const debugChecks = false
