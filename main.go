// =============================================================================
// Photo Sale Ledger - Main Entry Point
// =============================================================================
//
// This is the main entry point for the photosale CLI application. It
// delegates command execution to the cmd package.
//
// USAGE:
//   photosale order add     - Validate an order
//   photosale pay REF       - Record a payment
//   photosale export        - Write the reports of the day
//   photosale version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Ledger, order and export logic (not for external import)
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/photo-sale-ledger/cmd"
)

func main() {
	cmd.Execute()
}
