// Package main hosts the Curator CLI entrypoint and command graph.
//
// The Cobra-based command tree maps terminal invocations onto the library
// store, the board tree, and the model-backed analysis and classification
// runs. It centralizes configuration resolution and structured logging setup
// so subcommands can focus on presentation.
//
// Add new functionality to the internal packages first, then surface it
// through dedicated commands or flags here.
package main
