package main

import (
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"runtime/trace"

	"github.com/sharedshake/sharedshake/internal/logger"
)

// Each of these returns nil if the file couldn't be created, and otherwise
// a function that finishes the profile and closes the file

func createProfileFile(osArgs []string, kind string, path string, start func(io.Writer) error, stop func(io.Writer) error) func() {
	f, err := os.Create(path)
	if err != nil {
		logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
			"Failed to create %s file: %s", kind, err.Error()))
		return nil
	}
	if start != nil {
		if err := start(f); err != nil {
			logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
				"Failed to start %s: %s", kind, err.Error()))
			f.Close()
			return nil
		}
	}
	return func() {
		if err := stop(f); err != nil {
			logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
				"Failed to write %s: %s", kind, err.Error()))
		}
		f.Close()
	}
}

func createTraceFile(osArgs []string, traceFile string) func() {
	return createProfileFile(osArgs, "trace", traceFile, trace.Start, func(io.Writer) error {
		trace.Stop()
		return nil
	})
}

func createHeapFile(osArgs []string, heapFile string) func() {
	return createProfileFile(osArgs, "heap", heapFile, nil, pprof.WriteHeapProfile)
}

func createCpuprofileFile(osArgs []string, cpuprofileFile string) func() {
	return createProfileFile(osArgs, "cpuprofile", cpuprofileFile, pprof.StartCPUProfile, func(io.Writer) error {
		pprof.StopCPUProfile()
		return nil
	})
}
