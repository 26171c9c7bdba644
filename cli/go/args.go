package gocmd

// This file contains argument processing utilities for separating
// build-time and runtime test arguments.

import "strings"

// buildOnlyFlags affect compilation and must be passed to every go command
// that builds the test binary, including 'go test -list'.
var buildOnlyFlags = map[string]bool{
	"-tags":       true,
	"-race":       true,
	"-msan":       true,
	"-asan":       true,
	"-cover":      true,
	"-covermode":  true,
	"-coverpkg":   true,
	"-gcflags":    true,
	"-ldflags":    true,
	"-asmflags":   true,
	"-gccgoflags": true,
	"-mod":        true,
	"-modfile":    true,
	"-overlay":    true,
	"-pkgdir":     true,
	"-toolexec":   true,
	"-work":       true,
}

// boolFlags never take a separate value.
var boolFlags = map[string]bool{
	"-race":       true,
	"-msan":       true,
	"-asan":       true,
	"-cover":      true,
	"-work":       true,
	"-trimpath":   true,
	"-linkshared": true,
	"-a":          true,
	"-x":          true,
	"-short":      true,
	"-failfast":   true,
	"-fullpath":   true,
	"-benchmem":   true,
	"-v":          true,
}

// SeparateArgs splits extra go test arguments into build flags and runtime
// flags. Package patterns are returned separately.
func SeparateArgs(args []string) (packages, buildArgs, runtimeArgs []string) {
	packages = []string{}
	buildArgs = []string{}
	runtimeArgs = []string{}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			continue
		}

		if !strings.HasPrefix(arg, "-") {
			packages = append(packages, arg)
			continue
		}

		flagName := arg
		hasValue := false
		if idx := strings.Index(arg, "="); idx > 0 {
			flagName = arg[:idx]
			hasValue = true
		}

		target := &runtimeArgs
		if buildOnlyFlags[flagName] {
			target = &buildArgs
		}
		*target = append(*target, arg)

		// Flags like -tags foo take the next argument as value
		if !hasValue && !boolFlags[flagName] && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			*target = append(*target, args[i])
		}
	}

	return packages, buildArgs, runtimeArgs
}
