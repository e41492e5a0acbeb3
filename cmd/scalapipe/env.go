package main

import (
	"context"
	"fmt"

	"github.com/scalapipe/scalapipe/internal/env"
)

func printenv(ctx context.Context, args []string) error {
	fmt.Printf("SCALAPIPE_STRATEGY=%s\n", env.Strategy)
	fmt.Printf("SCALAPIPE_PARALLELISM=%d\n", env.Parallelism)
	fmt.Printf("SCALAPIPE_PICKLE_CACHE=%s\n", env.PickleCache)
	fmt.Printf("SCALAPIPE_USE_JAR=%t\n", env.UseJar)
	fmt.Printf("SCALAPIPE_CACHE_MACRO_CLASSLOADER=%t\n", env.CacheMacroClassloader)
	fmt.Printf("SCALAPIPE_CACHE_PLUGIN_CLASSLOADER=%t\n", env.CachePluginClassloader)
	fmt.Printf("SCALAPIPE_COMPILER=%s\n", env.Compiler)
	fmt.Printf("SCALAPIPE_JAVAC=%s\n", env.Javac)
	fmt.Printf("SCALAPIPE_EXTRACTOR=%s\n", env.Extractor)
	return nil
}
