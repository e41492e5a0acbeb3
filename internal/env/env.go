// Package env captures details about the scalapipe environment. Inspect the
// environment using `scalapipe env`.
package env

import (
	"os"
	"runtime"
	"strconv"
)

// Strategy selects how projects are overlapped: "pipeline" starts downstream
// front ends as soon as the upstream pickles are exported, "traditional"
// waits for full upstream completion.
var Strategy = stringOr("SCALAPIPE_STRATEGY", "pipeline")

// Parallelism is the worker pool size.
var Parallelism = intOr("SCALAPIPE_PARALLELISM", runtime.NumCPU())

// PickleCache is the pickle cache root directory. When empty, a fresh
// temporary directory is allocated and removed on exit.
var PickleCache = os.Getenv("SCALAPIPE_PICKLE_CACHE")

// UseJar selects the archive cache layout (one .jar per exported classpath
// entry) instead of a directory tree of .sig files.
var UseJar = boolOr("SCALAPIPE_USE_JAR", false)

// CacheMacroClassloader and CachePluginClassloader are forwarded to the front
// end.
var (
	CacheMacroClassloader  = boolOr("SCALAPIPE_CACHE_MACRO_CLASSLOADER", true)
	CachePluginClassloader = boolOr("SCALAPIPE_CACHE_PLUGIN_CLASSLOADER", true)
)

// Compiler, Javac and Extractor name the external tools.
var (
	Compiler  = stringOr("SCALAPIPE_COMPILER", "scalac")
	Javac     = stringOr("SCALAPIPE_JAVAC", "javac")
	Extractor = os.Getenv("SCALAPIPE_EXTRACTOR")
)

func stringOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func boolOr(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
