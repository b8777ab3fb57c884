// Package testsupport provides shared helpers for package tests:
// temp-dir configs, ledger stores, stub source images, and a scripted
// renderer client.
package testsupport
