// Package main provides the entry point for shadowhome-cli.
//
// shadowhome-cli drives a shadowhome-server wallet session from the
// terminal and manages software wallet keystores.
//
// Usage:
//
//	shadowhome-cli [global flags] wallet connect
//	shadowhome-cli -o json wallet events --limit 20
//	shadowhome-cli keystore new ~/.shadowhome/wallet.json
package main
