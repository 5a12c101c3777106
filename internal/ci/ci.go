// Package ci detects whether a run executes under a recognized
// continuous-integration system. CI mode switches on the published-output
// gate; local runs stop after rendering.
package ci

import "os"

// Source identifies how CI mode was established.
type Source string

const (
	SourceArg  Source = "arg"  // positional CI identifier matched
	SourceEnv  Source = "env"  // environment variable present
	SourceFlag Source = "flag" // forced on the command line
)

// Context describes a detected CI environment.
type Context struct {
	// Name is the matched identifier: the positional argument, the
	// environment variable name, or "forced".
	Name   string
	Source Source
}

// Detector matches positional identifiers and environment variables against
// the configured CI triggers.
type Detector struct {
	// EnvVars lists environment variables whose non-empty value means CI.
	EnvVars []string
	// Names lists positional-argument identifiers compared literally.
	Names []string
	// LookupEnv defaults to os.Getenv; injectable for tests.
	LookupEnv func(string) string
}

// Detect reports the CI context for the given positional argument. The
// argument comparison is literal string equality. An empty argument only
// consults the environment.
func (d Detector) Detect(arg string) (Context, bool) {
	if arg != "" {
		for _, name := range d.Names {
			if arg == name {
				return Context{Name: arg, Source: SourceArg}, true
			}
		}
	}

	lookup := d.LookupEnv
	if lookup == nil {
		lookup = os.Getenv
	}
	for _, envVar := range d.EnvVars {
		if lookup(envVar) != "" {
			return Context{Name: envVar, Source: SourceEnv}, true
		}
	}

	return Context{}, false
}

// Forced returns the context used when CI mode is requested explicitly.
func Forced() Context {
	return Context{Name: "forced", Source: SourceFlag}
}
