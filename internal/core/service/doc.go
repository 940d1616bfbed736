// Package service provides domain services for ShadowHome.
//
// Domain services contain the business logic and orchestrate operations on
// domain models. They define interfaces for their external collaborators,
// allowing for dependency injection and testability.
//
// This package contains:
//
//   - WalletSession: the wallet connect/authenticate state machine
//   - Provider / Locator: the injected wallet capability contract
//   - Observer: hooks for journaling and metrics of session activity
//
// WalletSession owns its state in a single goroutine. Caller operations and
// provider events both reach it through one inbox, so state is never
// touched concurrently and provider calls never block event handling.
package service
