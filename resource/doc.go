// Package resource governs the process-wide cost of loading resources.
//
// A Controller tracks three budgets:
//
//   - Mapped memory: bytes currently mapped by MappedResource and ElfSnapshot
//     instances (fail-fast, never blocks a load)
//   - Loader workers: slots for concurrent loads started by LoadResources
//   - Materialization IO: bytes per second pulled from remote blob namespaces
//
// # Usage
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     256 << 20,
//	    MaxBackgroundWorkers: 4,
//	    IOLimitBytesPerSec:   64 << 20,
//	})
//
//	r := mapres.NewMappedResource(mapres.WithResourceController(rc))
//
// # Nil Safety
//
// All methods accept a nil *Controller and behave as if no limits were set.
package resource
