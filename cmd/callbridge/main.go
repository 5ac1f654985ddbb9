// Package main provides the callbridge server and tools.
//
// Usage:
//
//	callbridge [flags] <command> [args]
//
// Commands:
//
//	serve    - Answer telephony media streams with a realtime AI
//	replay   - Run VAD and barge-in over a recorded call
//	tone     - Render the fallback tone
//	config   - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.callbridge/
//	Use 'callbridge config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/carhubcentralts-hue/prosaasil-sub006/cmd/callbridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
