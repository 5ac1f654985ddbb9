// Package cli provides the configuration and output helpers of the
// callbridge command.
//
// Configuration lives in ~/.callbridge/config.yaml and holds named
// contexts, similar to kubectl. A context carries the vendor credentials,
// the listen address, the tenant file and the data directory of one
// deployment.
//
//	cfg, err := cli.LoadConfig("")
//	ctx, err := cfg.ResolveContext(name)
//
//	cli.Output(result, cli.OutputOptions{Format: cli.FormatJSON})
package cli
