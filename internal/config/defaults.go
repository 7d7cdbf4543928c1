package config

import "runtime"

// ApplyAdaptiveDefaults fills settings left at "auto" from the hardware.
// Only -threads 0 is adaptive: the host's cores are shared between the ranks
// that run in this process.
func ApplyAdaptiveDefaults(cfg AppConfig) AppConfig {
	if cfg.Threads == 0 {
		cfg.Threads = EstimateThreads(runtime.NumCPU(), localRanks(cfg))
	}
	return cfg
}

// localRanks is the number of ranks sharing this process's CPUs.
func localRanks(cfg AppConfig) int {
	if cfg.Distributed() || cfg.Procs < 1 {
		return 1
	}
	return cfg.Procs
}

// EstimateThreads splits numCPU cores evenly among ranks, with at least one
// goroutine per rank.
func EstimateThreads(numCPU, ranks int) int {
	if ranks < 1 {
		ranks = 1
	}
	return max(numCPU/ranks, 1)
}
